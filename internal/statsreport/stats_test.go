package statsreport

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/tangzhangming/dexpeep/internal/dexir"
	"github.com/tangzhangming/dexpeep/internal/peephole"
)

func TestFromEngineAndWriteJSON(t *testing.T) {
	strs := dexir.NewStringPool()
	engine := peephole.NewEngine(strs, zap.NewNop(), nil, 0)

	block := dexir.NewBasicBlock(
		dexir.NewInstruction(dexir.Move).SetDest(1).SetSrcs([]uint16{1}),
	)
	method := &dexir.Method{Name: "m", Owner: "Lcom/example/Demo;", Blocks: []*dexir.BasicBlock{block}}
	if err := engine.Run([]*dexir.Class{{Name: "Lcom/example/Demo;", Methods: []*dexir.Method{method}}}); err != nil {
		t.Fatalf("Run returned an unexpected error: %v", err)
	}

	report := FromEngine(engine.Stats())
	if report.Removed != 1 || report.Inserted != 0 || report.NetDelta != -1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.RulesFired["Remove_Redundant_Move"] != 1 {
		t.Fatalf("expected Remove_Redundant_Move to have fired once, got %+v", report.RulesFired)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, report); err != nil {
		t.Fatalf("WriteJSON returned an error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("WriteJSON did not produce valid JSON: %v", err)
	}
	if decoded["instructions_removed"].(float64) != 1 {
		t.Fatalf("unexpected decoded JSON: %+v", decoded)
	}
}
