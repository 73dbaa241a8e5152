package wordmatch

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"Hello World", "너 바 보 야!!", "a1B2 c3", "  ", "émoji🎉", "바보"}
	for _, s := range inputs {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q != %q", s, once, twice)
		}
	}
}

func TestNormalizeAlphabet(t *testing.T) {
	if got := Normalize("너 바 보 야"); got != "너바보야" {
		t.Fatalf("expected 너바보야, got %q", got)
	}
	if got := Normalize("He!!o W0rld"); got != "heow0rld" {
		t.Fatalf("expected heow0rld, got %q", got)
	}
	if got := Normalize("...!?"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestCompileSkipsEmpty(t *testing.T) {
	matchers := Compile([]string{"바보", "!!!", "", "씨발"})
	if len(matchers) != 2 {
		t.Fatalf("expected 2 matchers, got %d", len(matchers))
	}
	if matchers[0].Original != "바보" || matchers[1].Original != "씨발" {
		t.Fatalf("unexpected matchers: %+v", matchers)
	}
}

func TestFindHitsSpacedProfanity(t *testing.T) {
	matchers := Compile([]string{"바보", "씨발"})
	hits := FindHits(Normalize("너 바 보 야"), matchers, DefaultHitLimit)
	if len(hits) != 1 || hits[0] != "바보" {
		t.Fatalf("expected [바보], got %v", hits)
	}
}

func TestFindHitsLimit(t *testing.T) {
	words := []string{"aa", "bb", "cc", "dd"}
	matchers := Compile(words)
	hits := FindHits("aabbccdd", matchers, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %v", hits)
	}
	if hits[0] != "aa" || hits[1] != "bb" {
		t.Fatalf("expected iteration order, got %v", hits)
	}
}

func TestFindHitsEmptyContent(t *testing.T) {
	matchers := Compile([]string{"bad"})
	if hits := FindHits("", matchers, DefaultHitLimit); hits != nil {
		t.Fatalf("expected no hits, got %v", hits)
	}
}
