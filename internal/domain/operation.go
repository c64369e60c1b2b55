package domain

// OperationKind identifies a gated filesystem operation. The set is closed:
// risk and confirmation rules dispatch on the enumerated kind through
// exhaustive lookup tables rather than substring matching, so adding a kind
// means extending the tables below.
type OperationKind string

const (
	// Read-only operations.
	OpScanFolder         OperationKind = "scan_folder"
	OpSearchFiles        OperationKind = "search_files"
	OpSearchFileContents OperationKind = "search_file_contents"
	OpGetFileInfo        OperationKind = "get_file_info"
	OpReadFileContent    OperationKind = "read_file_content"
	OpPreviewFile        OperationKind = "preview_file"
	OpReadFolderTree     OperationKind = "read_folder_tree"
	OpDetectProjectType  OperationKind = "detect_project_type"
	OpShowHistory        OperationKind = "show_history"
	OpListSnapshots      OperationKind = "list_snapshots"

	// Creation and copying.
	OpCreateFile   OperationKind = "create_file"
	OpCreateFolder OperationKind = "create_folder"
	OpCopyFiles    OperationKind = "copy_files"

	// Reorganisation.
	OpOrganizeFolder      OperationKind = "organize_folder"
	OpOrganizeByExtension OperationKind = "organize_by_extension"
	OpOrganizeBySize      OperationKind = "organize_by_size"
	OpMoveFiles           OperationKind = "move_files"
	OpRenameFile          OperationKind = "rename_file"
	OpBatchRename         OperationKind = "batch_rename"
	OpMoveFolderContents  OperationKind = "move_folder_contents"
	OpCopyFolderContents  OperationKind = "copy_folder_contents"

	// Destructive operations.
	OpDeleteFiles      OperationKind = "delete_files"
	OpDeleteFolder     OperationKind = "delete_folder"
	OpDeleteFolders    OperationKind = "delete_multiple_folders"
	OpDeleteMixedItems OperationKind = "delete_mixed_items"
	OpFlattenFolder    OperationKind = "flatten_folder"
)

// PathIntent is the access class the policy layer checks against.
type PathIntent string

const (
	IntentRead   PathIntent = "read"
	IntentWrite  PathIntent = "write"
	IntentModify PathIntent = "modify"
	IntentDelete PathIntent = "delete"
)

// baseRiskScore is the additive base contribution per operation kind.
var baseRiskScore = map[OperationKind]int{
	OpScanFolder:         0,
	OpSearchFiles:        0,
	OpSearchFileContents: 0,
	OpGetFileInfo:        0,
	OpReadFileContent:    0,
	OpPreviewFile:        0,
	OpReadFolderTree:     0,
	OpDetectProjectType:  0,
	OpShowHistory:        0,
	OpListSnapshots:      0,

	OpCreateFile:   5,
	OpCreateFolder: 5,
	OpCopyFiles:    5,

	OpOrganizeFolder:      15,
	OpOrganizeByExtension: 15,
	OpOrganizeBySize:      15,
	OpMoveFiles:           20,
	OpRenameFile:          20,
	OpBatchRename:         20,
	OpMoveFolderContents:  35,
	OpCopyFolderContents:  35,

	OpDeleteFiles:      50,
	OpDeleteMixedItems: 50,
	OpDeleteFolder:     60,
	OpDeleteFolders:    60,
	OpFlattenFolder:    60,
}

// UnknownOperationBaseScore applies when a caller submits a kind outside the
// enumerated set.
const UnknownOperationBaseScore = 25

var alwaysConfirm = map[OperationKind]bool{
	OpDeleteFiles:        true,
	OpDeleteFolder:       true,
	OpDeleteFolders:      true,
	OpDeleteMixedItems:   true,
	OpMoveFolderContents: true,
	OpFlattenFolder:      true,
}

var destructive = map[OperationKind]bool{
	OpDeleteFiles:        true,
	OpDeleteFolder:       true,
	OpDeleteFolders:      true,
	OpDeleteMixedItems:   true,
	OpFlattenFolder:      true,
	OpMoveFiles:          true,
	OpMoveFolderContents: true,
}

var intents = map[OperationKind]PathIntent{
	OpCreateFile:   IntentWrite,
	OpCreateFolder: IntentWrite,
	OpCopyFiles:    IntentWrite,

	OpOrganizeFolder:      IntentModify,
	OpOrganizeByExtension: IntentModify,
	OpOrganizeBySize:      IntentModify,
	OpMoveFiles:           IntentModify,
	OpRenameFile:          IntentModify,
	OpBatchRename:         IntentModify,
	OpMoveFolderContents:  IntentModify,
	OpCopyFolderContents:  IntentWrite,

	OpDeleteFiles:      IntentDelete,
	OpDeleteFolder:     IntentDelete,
	OpDeleteFolders:    IntentDelete,
	OpDeleteMixedItems: IntentDelete,
	OpFlattenFolder:    IntentDelete,
}

// Known reports whether the kind is part of the enumerated set.
func (o OperationKind) Known() bool {
	_, ok := baseRiskScore[o]
	return ok
}

// BaseScore returns the base risk contribution for the kind.
func (o OperationKind) BaseScore() int {
	if score, ok := baseRiskScore[o]; ok {
		return score
	}
	return UnknownOperationBaseScore
}

// ReadOnly reports whether the kind never mutates the filesystem. Read-only
// kinds are never asked for confirmation regardless of scale.
func (o OperationKind) ReadOnly() bool {
	score, ok := baseRiskScore[o]
	return ok && score == 0
}

// AlwaysConfirm reports whether the kind demands confirmation at any risk
// level.
func (o OperationKind) AlwaysConfirm() bool {
	return alwaysConfirm[o]
}

// Destructive reports whether the kind can remove or displace content, which
// is the precondition for automatic backups.
func (o OperationKind) Destructive() bool {
	return destructive[o]
}

// Intent maps the kind onto the access class checked by path policy.
func (o OperationKind) Intent() PathIntent {
	if intent, ok := intents[o]; ok {
		return intent
	}
	return IntentRead
}

// MustExist reports whether the operation's paths are expected to exist
// before it runs. Creation targets are the exception.
func (o OperationKind) MustExist() bool {
	return o != OpCreateFile && o != OpCreateFolder
}
