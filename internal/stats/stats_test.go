package stats

import "testing"

func TestMergeSumsCountersAndComputesAvgDocLength(t *testing.T) {
	workers := []Worker{
		{DocsSeen: 2, TokensSeen: 10, Malformed: 1},
		{DocsSeen: 3, TokensSeen: 20, Malformed: 0},
	}
	g := Merge(workers, 2)

	if g.NumDocuments != 5 {
		t.Errorf("NumDocuments = %d, want 5", g.NumDocuments)
	}
	if g.NumTokens != 30 {
		t.Errorf("NumTokens = %d, want 30", g.NumTokens)
	}
	if g.MalformedRecords != 3 {
		t.Errorf("MalformedRecords = %d, want 3 (1 worker + 2 reader)", g.MalformedRecords)
	}
	if want := 30.0 / 5.0; g.AvgDocLength != want {
		t.Errorf("AvgDocLength = %v, want %v", g.AvgDocLength, want)
	}
}

func TestMergeGuardsZeroDocuments(t *testing.T) {
	g := Merge(nil, 0)
	if g.AvgDocLength != 0 {
		t.Errorf("expected AvgDocLength 0 for an empty corpus, got %v", g.AvgDocLength)
	}
}

func TestWriteAndLoadJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/stats.json"
	g := Global{NumDocuments: 5, NumTokens: 30, AvgDocLength: 6, MalformedRecords: 1}

	if err := WriteJSON(path, g); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	loaded, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if loaded != g {
		t.Errorf("round-tripped stats = %+v, want %+v", loaded, g)
	}
}
