package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenizeLowercasesAndSplitsOnNonAlphanumeric(t *testing.T) {
	got := Tokenize("Running, Jumping-Fast!")
	want := []Term{"runn", "jump", "fast"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeDropsStopWords(t *testing.T) {
	got := Tokenize("the cat and the dog")
	want := []Term{"cat", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenizeIsDeterministic(t *testing.T) {
	text := "Searching engines index documents quickly"
	a := Tokenize(text)
	b := Tokenize(text)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical output across calls, got %v then %v", a, b)
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	got := Tokenize("")
	if len(got) != 0 {
		t.Errorf("expected no terms for empty input, got %v", got)
	}
}
