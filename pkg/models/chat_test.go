package models

import "testing"

func TestAppendFragment(t *testing.T) {
	tests := []struct {
		name      string
		before    []ChatMessage
		fragments []string
		want      []ChatMessage
	}{
		{
			name:      "first fragment starts a bot message",
			before:    []ChatMessage{{Sender: SenderUser, Text: "Is E120 halal?"}},
			fragments: []string{"E120 is "},
			want: []ChatMessage{
				{Sender: SenderUser, Text: "Is E120 halal?"},
				{Sender: SenderBot, Text: "E120 is "},
			},
		},
		{
			name:      "fragments fold onto the trailing bot message",
			before:    []ChatMessage{{Sender: SenderUser, Text: "Is E120 halal?"}},
			fragments: []string{"E120 is ", "carmine, which is ", "not halal."},
			want: []ChatMessage{
				{Sender: SenderUser, Text: "Is E120 halal?"},
				{Sender: SenderBot, Text: "E120 is carmine, which is not halal."},
			},
		},
		{
			name:      "empty conversation",
			before:    nil,
			fragments: []string{"Hello!"},
			want:      []ChatMessage{{Sender: SenderBot, Text: "Hello!"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.before
			for _, fragment := range tt.fragments {
				got = AppendFragment(got, fragment)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("message %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAppendFragment_DoesNotMutateInput(t *testing.T) {
	before := []ChatMessage{
		{Sender: SenderUser, Text: "hi"},
		{Sender: SenderBot, Text: "partial"},
	}
	_ = AppendFragment(before, " reply")

	if before[1].Text != "partial" {
		t.Errorf("input conversation mutated: %q", before[1].Text)
	}
}

func TestProductNotFound(t *testing.T) {
	found := &AnalysisResult{OverallStatus: OverallAppearsHalal}
	if found.ProductNotFound() {
		t.Error("Appears Halal must not read as not-found")
	}

	notFound := &AnalysisResult{OverallStatus: OverallProductNotFound}
	if !notFound.ProductNotFound() {
		t.Error("Product Not Found must read as not-found")
	}
}
