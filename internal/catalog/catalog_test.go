package catalog

import "testing"

func TestCategoriesShape(t *testing.T) {
	cats := Categories()
	if len(cats) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(cats))
	}

	wantIDs := []string{"0", "1", "2", "3", "4", "5", "6", "7"}
	for i, c := range cats {
		if c.ID != wantIDs[i] {
			t.Errorf("category %d has id %q, want %q", i, c.ID, wantIDs[i])
		}
		if len(c.Items) == 0 {
			t.Errorf("category %q has no items", c.ID)
		}
		for _, it := range c.Items {
			if it.Title == "" || it.Description == "" {
				t.Errorf("item %s_%s is missing a label", c.ID, it.ID)
			}
		}
	}
}

func TestCategoriesReturnsCopy(t *testing.T) {
	first := Categories()
	first[0].Name = "tampered"
	first[0].Items[0].Title = "tampered"

	second := Categories()
	if second[0].Name == "tampered" || second[0].Items[0].Title == "tampered" {
		t.Fatal("mutating the returned slice altered the catalog")
	}
}

func TestItemKeyRoundTrip(t *testing.T) {
	for _, c := range Categories() {
		for _, it := range c.Items {
			key := ItemKey(c.ID, it.ID)

			catID, ok := CategoryOf(key)
			if !ok || catID != c.ID {
				t.Errorf("CategoryOf(%q) = %q, %v; want %q, true", key, catID, ok, c.ID)
			}
			if !BelongsTo(key, c.ID) {
				t.Errorf("BelongsTo(%q, %q) = false", key, c.ID)
			}

			gotCat, gotItem, ok := Lookup(key)
			if !ok {
				t.Fatalf("Lookup(%q) not found", key)
			}
			if gotCat.ID != c.ID || gotItem.ID != it.ID {
				t.Errorf("Lookup(%q) = (%q, %q), want (%q, %q)", key, gotCat.ID, gotItem.ID, c.ID, it.ID)
			}
		}
	}
}

func TestLookupUnknownKey(t *testing.T) {
	for _, key := range []string{"", "9_9-1", "0_0-99", "nounders", "_", "0_"} {
		if _, _, ok := Lookup(key); ok {
			t.Errorf("Lookup(%q) = found, want not found", key)
		}
	}
}

func TestCategoryOfMalformedKeys(t *testing.T) {
	if _, ok := CategoryOf("nounderscorehere"); ok {
		t.Error("CategoryOf without separator should report false")
	}
	if _, ok := CategoryOf("_1-1"); ok {
		t.Error("CategoryOf with empty category id should report false")
	}
}

func TestBelongsToPrefixMatchingIsExact(t *testing.T) {
	// "10_x" must not register as category "1".
	if BelongsTo("10_1-1", "1") {
		t.Error(`key "10_1-1" wrongly matched category "1"`)
	}
	if !BelongsTo("1_1-1", "1") {
		t.Error(`key "1_1-1" should match category "1"`)
	}
}
