package safety

import (
	"errors"
	"testing"

	"ugcfactory/internal/domain"
)

func TestValidateScript(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"clean copy", "これ、歌えるようになる？使ってみて！", false},
		{"empty", "", false},
		{"medical cure claim", "一週間で治る！", true},
		{"complete recovery", "完治します", true},
		{"doctor mention", "医師も推薦", true},
		{"medicine mention", "この薬はすごい", true},
		{"prescription mention", "処方されたもの", true},
		{"side effect mention", "副作用なし", true},
		{"absolute percent claim", "100%みんなに効く", true},
		{"kanarazu claim", "必ず痩せる", true},
		{"zettai claim", "絶対おすすめ", true},
		{"percent without effect", "満足度100%を目指す", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateScript(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ValidateScript(%q) = nil, want compliance error", tc.text)
				}
				var de *domain.Error
				if !errors.As(err, &de) || de.Kind != domain.KindCompliance {
					t.Fatalf("ValidateScript(%q) kind = %v, want compliance", tc.text, domain.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateScript(%q) = %v, want nil", tc.text, err)
			}
		})
	}
}
