package mapreduce

import (
	"reflect"
	"testing"

	"github.com/dtnitsch/wikigraph/models"
)

func link(source, target int64, anchor string) models.LinkEdge {
	return models.LinkEdge{SourcePageID: source, TargetPageID: target, AnchorText: anchor}
}

func TestMergeAnchorCountsCommutative(t *testing.T) {
	key := AnchorKey{AnchorText: "a", TargetID: 1}
	a := AnchorCounts{key: 3}
	b := AnchorCounts{key: 4}

	ab := MergeAnchorCounts(a, b)
	ba := MergeAnchorCounts(b, a)
	if ab[key] != 7 || ba[key] != 7 {
		t.Errorf("merge = %d / %d, want 7", ab[key], ba[key])
	}
	if a[key] != 3 || b[key] != 4 {
		t.Error("MergeAnchorCounts() modified its inputs")
	}
}

func TestMergeAssociative(t *testing.T) {
	k1 := AnchorKey{"x", 1}
	k2 := AnchorKey{"y", 2}
	a := AnchorCounts{k1: 1}
	b := AnchorCounts{k1: 2, k2: 5}
	c := AnchorCounts{k2: 1}

	left := MergeAnchorCounts(MergeAnchorCounts(a, b), c)
	right := MergeAnchorCounts(a, MergeAnchorCounts(b, c))
	if !reflect.DeepEqual(left, right) {
		t.Errorf("(a+b)+c = %v, a+(b+c) = %v", left, right)
	}

	da := Degrees{1: {In: 1}}
	db := Degrees{1: {Out: 2}, 2: {In: 3}}
	dc := Degrees{2: {Out: 1}}
	if !reflect.DeepEqual(MergeDegrees(MergeDegrees(da, db), dc), MergeDegrees(da, MergeDegrees(db, dc))) {
		t.Error("MergeDegrees() is not associative")
	}
}

func TestPartitionedEqualsSingle(t *testing.T) {
	links := []models.LinkEdge{
		link(1, 2, "two"), link(1, 3, "three"), link(2, 3, "three"), link(3, 1, "one"),
		link(1, 2, "two"), link(4, 2, "Two"), link(4, 3, "three"), link(2, 1, "one"),
		link(3, 2, "two"), link(1, 4, "four"),
	}

	allCounts, allDegrees := Map(links)

	splits := [][]models.LinkEdge{links[:2], links[2:7], links[7:]}
	var counts []AnchorCounts
	var degrees []Degrees
	for _, s := range splits {
		c, d := Map(s)
		counts = append(counts, c)
		degrees = append(degrees, d)
	}

	if got := ReduceAnchorCounts(counts).Sorted(); !reflect.DeepEqual(got, allCounts.Sorted()) {
		t.Errorf("3 partitions anchor counts = %v, want %v", got, allCounts.Sorted())
	}
	if got := ReduceDegrees(degrees).Sorted(); !reflect.DeepEqual(got, allDegrees.Sorted()) {
		t.Errorf("3 partitions degrees = %v, want %v", got, allDegrees.Sorted())
	}

	// Order of partitions must not matter either.
	reversed := []AnchorCounts{counts[2], counts[0], counts[1]}
	if !reflect.DeepEqual(ReduceAnchorCounts(reversed), ReduceAnchorCounts(counts)) {
		t.Error("ReduceAnchorCounts() depends on partition order")
	}
}

func TestSorted(t *testing.T) {
	c := AnchorCounts{
		{"b", 2}: 5,
		{"a", 9}: 5,
		{"a", 3}: 5,
		{"z", 1}: 8,
	}
	want := []models.AnchorTargetCount{
		{AnchorText: "z", TargetID: 1, Count: 8},
		{AnchorText: "a", TargetID: 3, Count: 5},
		{AnchorText: "a", TargetID: 9, Count: 5},
		{AnchorText: "b", TargetID: 2, Count: 5},
	}
	if got := c.Sorted(); !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted() = %v, want %v", got, want)
	}

	d := Degrees{5: {In: 1, Out: 1}, 2: {In: 1, Out: 1}, 9: {In: 4}}
	wantD := []models.PageDegree{{PageID: 9, InCount: 4}, {PageID: 2, InCount: 1, OutCount: 1}, {PageID: 5, InCount: 1, OutCount: 1}}
	if got := d.Sorted(); !reflect.DeepEqual(got, wantD) {
		t.Errorf("Degrees.Sorted() = %v, want %v", got, wantD)
	}
}

func TestTopAnchors(t *testing.T) {
	c := AnchorCounts{{"a", 1}: 3, {"b", 2}: 1}
	got := TopAnchors(c, 1)
	want := []string{"a->1:3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopAnchors() = %v, want %v", got, want)
	}
}
