package script

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDummyGeneratorProducesRequestedVariants(t *testing.T) {
	gen := NewDummyGenerator()
	set, err := gen.Generate(context.Background(), GenerateRequest{TargetCount: 3})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(set.Variants) != 3 {
		t.Fatalf("variants = %d, want 3", len(set.Variants))
	}
	for i, v := range set.Variants {
		if v.VariantIndex != i+1 {
			t.Fatalf("variant %d index = %d, want %d", i, v.VariantIndex, i+1)
		}
		if v.FullScript == "" || v.Hook == "" || v.CTA == "" {
			t.Fatalf("variant %d has empty script fields: %+v", i, v)
		}
		if len(v.Captions) != 3 {
			t.Fatalf("variant %d captions = %d, want 3", i, len(v.Captions))
		}
		if !v.Compliance.NoMedicalClaim || !v.Compliance.NoBeforeAfter {
			t.Fatalf("variant %d compliance flags not set: %+v", i, v.Compliance)
		}
	}
}

func TestDummyGeneratorZeroCountYieldsOne(t *testing.T) {
	gen := NewDummyGenerator()
	set, err := gen.Generate(context.Background(), GenerateRequest{TargetCount: 0})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(set.Variants) != 1 {
		t.Fatalf("variants = %d, want 1", len(set.Variants))
	}
}

func TestDummyGeneratorCTAUsesProductName(t *testing.T) {
	gen := NewDummyGenerator()
	set, err := gen.Generate(context.Background(), GenerateRequest{TargetCount: 1, ProductName: "sing kana"})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := set.Variants[0].CTA; got != "使ってみて：Sing Kana" {
		t.Fatalf("cta = %q, want title-cased product name", got)
	}

	set, err = gen.Generate(context.Background(), GenerateRequest{TargetCount: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := set.Variants[0].CTA; !strings.Contains(got, "singkana.com") {
		t.Fatalf("cta = %q, want default target", got)
	}
}

func TestRenderPrompt(t *testing.T) {
	meta := map[string]any{
		"product_name": "SingKana",
		"usp":          "一瞬で歌える",
		"target":       "20代",
	}
	prompt := RenderPrompt(meta, 2)

	for _, want := range []string{"SingKana", "一瞬で歌える", "20代", "casual", "variants を 2 本生成"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestRenderPromptToneOverride(t *testing.T) {
	prompt := RenderPrompt(map[string]any{"tone": "formal"}, 1)
	if !strings.Contains(prompt, "トーン: formal") {
		t.Fatalf("prompt did not carry tone override:\n%s", prompt)
	}
}

func TestParseScriptSet(t *testing.T) {
	clean := `{"variants":[{"variant_index":1,"hook":"h","body":"b","cta":"c","full_script":"h b c","captions":[{"t":0,"text":"h"}]}]}`

	tests := []struct {
		name    string
		text    string
		wantLen int
		wantErr bool
	}{
		{"clean object", clean, 1, false},
		{"wrapped in prose", "Here you go:\n" + clean + "\nEnjoy!", 1, false},
		{"no object", "sorry, I cannot do that", 0, true},
		{"broken object", `prefix {"variants":[} suffix`, 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			set, err := parseScriptSet(tc.text)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseScriptSet: %v", err)
			}
			if len(set.Variants) != tc.wantLen {
				t.Fatalf("variants = %d, want %d", len(set.Variants), tc.wantLen)
			}
		})
	}
}

func TestOpenAIGeneratorRequiresAPIKey(t *testing.T) {
	if _, err := NewOpenAIGenerator(OpenAIOptions{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestOpenAIGeneratorGenerate(t *testing.T) {
	content := `{"variants":[{"variant_index":1,"hook":"h","body":"b","cta":"c","full_script":"s"}]}`
	var gotAuth, gotPath string
	gen, err := NewOpenAIGenerator(OpenAIOptions{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			body := fmt.Sprintf(`{"choices":[{"message":{"content":%q}}]}`, content)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(body)),
				Header:     http.Header{"Content-Type": []string{"application/json"}},
			}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}

	set, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "p", TargetCount: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(set.Variants) != 1 || set.Variants[0].Hook != "h" {
		t.Fatalf("unexpected variants: %+v", set.Variants)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotPath != "/v1/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestOpenAIGeneratorPropagatesAPIError(t *testing.T) {
	gen, err := NewOpenAIGenerator(OpenAIOptions{
		APIKey: "sk-test",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusTooManyRequests,
				Body:       io.NopCloser(strings.NewReader(`{"error":"rate limited"}`)),
			}, nil
		})},
	})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}
	if _, err := gen.Generate(context.Background(), GenerateRequest{Prompt: "p"}); err == nil {
		t.Fatal("expected error for API failure")
	}
}
