package cli

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/gordian/pkg/pipeline"
	"github.com/matzehuels/gordian/pkg/place"
)

func TestSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		width  int
		want   string
	}{
		{"empty", nil, 10, ""},
		{"flat", []float64{3, 3, 3}, 10, "▄▄▄"},
		{"descending", []float64{8, 4, 0}, 10, "█▄▁"},
		{"truncated", []float64{9, 8, 0, 7}, 2, "▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkline(tt.values, tt.width); got != tt.want {
				t.Errorf("sparkline(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestPlaceModelUpdate(t *testing.T) {
	var m tea.Model = NewPlaceModel("ring", nil)

	m, _ = m.Update(placeStartMsg{cells: 8, nets: 8})
	m, _ = m.Update(iterationMsg{index: 0, partitions: 1, hpwl: 12})
	m, _ = m.Update(iterationMsg{index: 1, partitions: 2, hpwl: 9})

	pm := m.(PlaceModel)
	if pm.Cells != 8 || pm.Nets != 8 || pm.Iteration != 1 || pm.Partitions != 2 {
		t.Errorf("model = %+v", pm)
	}
	if len(pm.History) != 2 || pm.History[1] != 9 {
		t.Errorf("history = %v", pm.History)
	}
	view := pm.View()
	for _, want := range []string{"ring", "8 cells", "partitions", "hpwl"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}

	res := &pipeline.Result{Placement: &place.Result{FinalHPWL: 9}}
	m, cmd := m.Update(placeDoneMsg{result: res})
	if cmd == nil {
		t.Fatal("done message should quit")
	}
	if m.(PlaceModel).Result != res {
		t.Error("result not stored")
	}
}

func TestPlaceModelQuitCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewPlaceModel("ring", cancel)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if ctx.Err() == nil {
		t.Error("quitting did not cancel the run")
	}
	if next.(PlaceModel).Err != context.Canceled {
		t.Errorf("err = %v", next.(PlaceModel).Err)
	}
}

func TestTUIHooks(t *testing.T) {
	var got []tea.Msg
	h := tuiHooks{send: func(msg tea.Msg) { got = append(got, msg) }}
	h.OnPlaceStart(context.Background(), "run", 8, 8)
	h.OnIteration(context.Background(), "run", 0, 1, 4.5)
	h.OnSolve(context.Background(), "run", true, 3, 0)

	if len(got) != 2 {
		t.Fatalf("sent %d messages, want 2", len(got))
	}
	if it, ok := got[1].(iterationMsg); !ok || it.hpwl != 4.5 {
		t.Errorf("second message = %#v", got[1])
	}
	if n := utf8.RuneCountInString(sparkline([]float64{1, 2}, sparkWidth)); n != 2 {
		t.Errorf("sparkline width = %d", n)
	}
}
