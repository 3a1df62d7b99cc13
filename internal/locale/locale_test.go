package locale

import (
	"strings"
	"testing"

	"golang.org/x/text/language"
)

func TestCatalogLanguages(t *testing.T) {
	tests := []struct {
		lang string
		key  string
		args []any
		want string
	}{
		{"en", EwecaRising, nil, "Eweca is rising."},
		{"zh-Hant", EwecaRising, nil, "艾威卡升起了"},
		{"zh-TW", EwecaGone, nil, "艾威卡消失了"},
		{"fr", EwecaGone, nil, "Eweca has disappeared."},
		{"en", TargetNotFound, []any{"Bob"}, "Character 'Bob' couldn't be found."},
		{"zh-Hant", UnknownRegion, []any{42}, "區域 42 不存在"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.key, func(t *testing.T) {
			c, err := New(tt.lang)
			if err != nil {
				t.Fatal(err)
			}
			if got := c.Get(tt.key, tt.args...); !strings.Contains(got, tt.want) {
				t.Fatalf("Get = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestCatalogFallbackTag(t *testing.T) {
	c, err := New("de")
	if err != nil {
		t.Fatal(err)
	}
	if c.Language() != language.English {
		t.Fatalf("Language = %v, want en", c.Language())
	}
}

func TestCatalogInvalidTag(t *testing.T) {
	if _, err := New("not a tag!"); err == nil {
		t.Fatal("expected error")
	}
}
