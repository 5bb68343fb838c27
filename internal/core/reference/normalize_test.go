package reference

import "testing"

func TestNormalizeUnifiesScriptDigits(t *testing.T) {
	cases := [][2]string{
		{"प्रकरण १४", "प्रकरण 14"},
		{"પ્રકરણ ૧૯", "પ્રકરણ 19"},
		{"Chaupāī\t\t 3 ", "chaupai 3"},
		{"ＰＲＡＫＲＡＮ　２", "prakran 2"},
	}
	for _, tc := range cases {
		in, want := tc[0], tc[1]
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestNormalizeKeepsIndicVowelSigns(t *testing.T) {
	in := "चौपाई"
	if got := Normalize(in); got != in {
		t.Fatalf("expected devanagari text to survive, got %q", got)
	}
}

func TestFoldKeyTransliterationVariants(t *testing.T) {
	pairs := [][2]string{
		{"Singaar", "singar"},
		{"Shree", "Sri"},
		{"Kirantan", "kirantan"},
	}
	for _, pair := range pairs {
		if foldKey(pair[0]) != foldKey(pair[1]) {
			t.Fatalf("expected %q and %q to fold equal, got %q and %q", pair[0], pair[1], foldKey(pair[0]), foldKey(pair[1]))
		}
	}
}

func TestStripHonorificKeepsShortRemainders(t *testing.T) {
	if got := stripHonorific(foldKey("Shri Kirantan")); got != "kirantan" {
		t.Fatalf("expected kirantan, got %q", got)
	}
	if got := stripHonorific(foldKey("shringar")); got != "sringar" {
		t.Fatalf("expected shringar to stay whole, got %q", got)
	}
}

func TestHonorificFreeKey(t *testing.T) {
	if got := honorificFreeKey("ShriSingaar"); got != "singar" {
		t.Fatalf("expected singar, got %q", got)
	}
	if got := honorificFreeKey("Shringar"); got != "" {
		t.Fatalf("expected no honorific key, got %q", got)
	}
}

func TestEditDistance(t *testing.T) {
	if d := editDistance("singar", "sringar"); d != 1 {
		t.Fatalf("expected distance 1, got %d", d)
	}
	if d := editDistance("", "abc"); d != 3 {
		t.Fatalf("expected distance 3, got %d", d)
	}
}
