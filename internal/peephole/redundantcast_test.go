package peephole

import (
	"testing"

	"go.uber.org/zap"

	"github.com/tangzhangming/dexpeep/internal/dexir"
)

func TestRedundantCastRemoverDeletesCastAfterNewInstance(t *testing.T) {
	widget := &dexir.TypeRef{Name: "Lcom/example/Widget;"}
	block := dexir.NewBasicBlock(
		dexir.NewInstruction(dexir.NewInstance).SetDest(0).SetType(widget),
		dexir.NewInstruction(dexir.CheckCast).SetDest(0).SetType(widget),
	)
	method := &dexir.Method{Name: "m", Owner: "Lcom/example/Demo;", Blocks: []*dexir.BasicBlock{block}}
	scope := []*dexir.Class{{Name: "Lcom/example/Demo;", Methods: []*dexir.Method{method}}}

	remover := NewRedundantCastRemover(zap.NewNop())
	remover.Run(scope)

	if len(block.Instructions) != 1 {
		t.Fatalf("expected the redundant check-cast to be removed, got %+v", block.Instructions)
	}
	if remover.Removed() != 1 {
		t.Fatalf("expected Removed() == 1, got %d", remover.Removed())
	}
}

func TestRedundantCastRemoverKeepsCastToADifferentType(t *testing.T) {
	widget := &dexir.TypeRef{Name: "Lcom/example/Widget;"}
	gadget := &dexir.TypeRef{Name: "Lcom/example/Gadget;"}
	block := dexir.NewBasicBlock(
		dexir.NewInstruction(dexir.NewInstance).SetDest(0).SetType(widget),
		dexir.NewInstruction(dexir.CheckCast).SetDest(0).SetType(gadget),
	)
	method := &dexir.Method{Name: "m", Owner: "Lcom/example/Demo;", Blocks: []*dexir.BasicBlock{block}}
	scope := []*dexir.Class{{Name: "Lcom/example/Demo;", Methods: []*dexir.Method{method}}}

	remover := NewRedundantCastRemover(zap.NewNop())
	remover.Run(scope)

	if len(block.Instructions) != 2 {
		t.Fatalf("expected a cast to a different type to survive, got %+v", block.Instructions)
	}
	if remover.Removed() != 0 {
		t.Fatalf("expected Removed() == 0, got %d", remover.Removed())
	}
}

func TestRedundantCastRemoverInvalidatesKnownTypeOnReassignment(t *testing.T) {
	widget := &dexir.TypeRef{Name: "Lcom/example/Widget;"}
	block := dexir.NewBasicBlock(
		dexir.NewInstruction(dexir.NewInstance).SetDest(0).SetType(widget),
		dexir.NewInstruction(dexir.Move).SetDest(0).SetSrcs([]uint16{9}),
		dexir.NewInstruction(dexir.CheckCast).SetDest(0).SetType(widget),
	)
	method := &dexir.Method{Name: "m", Owner: "Lcom/example/Demo;", Blocks: []*dexir.BasicBlock{block}}
	scope := []*dexir.Class{{Name: "Lcom/example/Demo;", Methods: []*dexir.Method{method}}}

	remover := NewRedundantCastRemover(zap.NewNop())
	remover.Run(scope)

	if len(block.Instructions) != 3 {
		t.Fatalf("expected the check-cast to survive since v0 was reassigned, got %+v", block.Instructions)
	}
}
