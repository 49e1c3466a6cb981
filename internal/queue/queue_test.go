package queue

import "testing"

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Message
		wantErr bool
	}{
		{
			name:    "valid",
			payload: `{"job_id":"j1","variant_index":2}`,
			want:    Message{JobID: "j1", VariantIndex: 2},
		},
		{
			name:    "missing job id",
			payload: `{"variant_index":1}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			payload: `{"job_id":`,
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.payload))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tc.want {
				t.Fatalf("message = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDeadLetterKey(t *testing.T) {
	q := NewFinalizeQueue(nil, "ugc:finalize")
	if got := q.DeadLetterKey(); got != "ugc:finalize:dead" {
		t.Fatalf("dead letter key = %q, want %q", got, "ugc:finalize:dead")
	}
	if got := q.Key(); got != "ugc:finalize" {
		t.Fatalf("queue key = %q, want %q", got, "ugc:finalize")
	}
}
