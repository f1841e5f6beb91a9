package enum

import "testing"

func TestParseCategory(t *testing.T) {
	testCases := []struct {
		desc     string
		input    string
		expected DataCategory
		ok       bool
	}{
		{"exact", "Spot", CategorySpot, true},
		{"lower", "perpetual", CategoryPerpetual, true},
		{"padded", "  Future ", CategoryFuture, true},
		{"order book", "ORDERBOOK", CategoryOrderBook, true},
		{"unknown", "Swap", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			c, ok := ParseCategory(tc.input)
			if ok != tc.ok {
				t.Fatalf("ok mismatch! should be %v but got %v", tc.ok, ok)
			}
			if c != tc.expected {
				t.Fatalf("category mismatch! should be %s but got %s", tc.expected, c)
			}
			if ok && !c.IsAvailable() {
				t.Fatalf("parsed category %s should be available", c)
			}
		})
	}
}
