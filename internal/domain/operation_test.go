package domain

import "testing"

func TestOperationKindTablesAreConsistent(t *testing.T) {
	for op := range alwaysConfirm {
		if !op.Known() {
			t.Errorf("alwaysConfirm lists unknown kind %q", op)
		}
	}
	for op := range destructive {
		if !op.Known() {
			t.Errorf("destructive lists unknown kind %q", op)
		}
		if op.ReadOnly() {
			t.Errorf("kind %q is both destructive and read-only", op)
		}
	}
	for op := range intents {
		if !op.Known() {
			t.Errorf("intents lists unknown kind %q", op)
		}
	}
}

func TestUnknownOperationKind(t *testing.T) {
	op := OperationKind("defragment_disk")
	if op.Known() {
		t.Fatal("unexpected known kind")
	}
	if got := op.BaseScore(); got != UnknownOperationBaseScore {
		t.Fatalf("BaseScore = %d, want %d", got, UnknownOperationBaseScore)
	}
	if op.ReadOnly() {
		t.Fatal("unknown kinds must not be treated as read-only")
	}
	if op.Intent() != IntentRead {
		t.Fatalf("unknown intent = %q", op.Intent())
	}
}

func TestReadOnlyKindsScoreZero(t *testing.T) {
	for _, op := range []OperationKind{OpScanFolder, OpSearchFiles, OpReadFileContent, OpListSnapshots} {
		if !op.ReadOnly() || op.BaseScore() != 0 {
			t.Errorf("%q should be read-only with base 0", op)
		}
		if op.AlwaysConfirm() {
			t.Errorf("%q should never require confirmation", op)
		}
	}
}

func TestMustExist(t *testing.T) {
	if OpCreateFile.MustExist() || OpCreateFolder.MustExist() {
		t.Fatal("creation targets must not be required to exist")
	}
	if !OpDeleteFiles.MustExist() {
		t.Fatal("delete targets must exist")
	}
}

func TestLevelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskSafe},
		{14, RiskSafe},
		{15, RiskLow},
		{34, RiskLow},
		{35, RiskMedium},
		{59, RiskMedium},
		{60, RiskHigh},
		{79, RiskHigh},
		{80, RiskCritical},
		{100, RiskCritical},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}
