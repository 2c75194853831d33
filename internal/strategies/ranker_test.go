package strategies

import (
	"testing"

	"github.com/bdrazn/adkextension/internal/types"
)

func msg(ordinal int, role types.Role, text string) types.Message {
	return types.Message{
		Role:    role,
		Ordinal: ordinal,
		Content: []types.MessageContent{{Type: "text", Value: text}},
	}
}

func TestSortByPriorityRecencyAndRole(t *testing.T) {
	r := NewHeuristicRanker()
	messages := []types.Message{
		msg(0, types.RoleAssistant, "old assistant reply"),
		msg(1, types.RoleUser, "old user question?"),
		msg(2, types.RoleAssistant, "recent assistant reply"),
		msg(3, types.RoleUser, "newest user message"),
	}

	ranked := r.SortByPriority(messages)
	if len(ranked) != 4 {
		t.Fatalf("expected 4 scored messages, got %d", len(ranked))
	}
	if ranked[0].Message.Ordinal != 3 {
		t.Errorf("newest user message should rank first, got ordinal %d", ranked[0].Message.Ordinal)
	}
	if len(ranked[0].Reasons) == 0 {
		t.Error("expected scoring reasons")
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatal("ranking not sorted by score")
		}
	}
}

func TestSelectByTokenBudgetRespectsBudgetAndOrder(t *testing.T) {
	r := NewHeuristicRanker()
	messages := []types.Message{
		msg(0, types.RoleUser, "aaaa"),
		msg(1, types.RoleAssistant, "bbbb"),
		msg(2, types.RoleUser, "cccc"),
		msg(3, types.RoleUser, "dddd"),
	}
	tokenFn := func(m types.Message) int { return 1 }

	selected := r.SelectByTokenBudget(messages, 2, tokenFn)
	if len(selected) != 2 {
		t.Fatalf("expected 2 messages under budget, got %d", len(selected))
	}
	// Output preserves projection order regardless of score order.
	if selected[0].Ordinal >= selected[1].Ordinal {
		t.Errorf("selection out of order: %d, %d", selected[0].Ordinal, selected[1].Ordinal)
	}
}

func TestSelectByTokenBudgetZeroBudget(t *testing.T) {
	r := NewHeuristicRanker()
	messages := []types.Message{msg(0, types.RoleUser, "hello")}
	selected := r.SelectByTokenBudget(messages, 0, func(types.Message) int { return 5 })
	if len(selected) != 0 {
		t.Fatalf("expected empty selection, got %d", len(selected))
	}
}

func TestSelectTopMessages(t *testing.T) {
	r := NewHeuristicRanker()
	messages := []types.Message{
		msg(0, types.RoleAssistant, "a"),
		msg(1, types.RoleUser, "b"),
		msg(2, types.RoleUser, "c"),
	}

	top := r.SelectTopMessages(messages, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(top))
	}
	if top[0].Ordinal >= top[1].Ordinal {
		t.Error("top selection must preserve original order")
	}

	if got := r.SelectTopMessages(messages, 10); len(got) != 3 {
		t.Errorf("n beyond input should return all, got %d", len(got))
	}
	if got := r.SelectTopMessages(messages, 0); got != nil {
		t.Errorf("n=0 should return nil, got %v", got)
	}
}
