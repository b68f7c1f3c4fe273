package geo

import "testing"

func TestParseGridS1(t *testing.T) {
	g, err := ParseGrid("nw(55,-130) se(20,-60) s(0.01,0.01) h(0,3,Uniform1Km)")
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	if g.NWLatDegs != 55 || g.NWLonDegs != -130 {
		t.Errorf("nw = (%v,%v), want (55,-130)", g.NWLatDegs, g.NWLonDegs)
	}
	if g.SELatDegs != 20 || g.SELonDegs != -60 {
		t.Errorf("se = (%v,%v), want (20,-60)", g.SELatDegs, g.SELonDegs)
	}
	if g.NumX != 7000 {
		t.Errorf("NumX = %d, want 7000", g.NumX)
	}
	if g.NumY != 3500 {
		t.Errorf("NumY = %d, want 3500", g.NumY)
	}
	want := []float64{0.0, 1.0, 2.0, 3.0}
	if len(g.HeightsKM) != len(want) {
		t.Fatalf("HeightsKM = %v, want %v", g.HeightsKM, want)
	}
	for i := range want {
		if g.HeightsKM[i] != want[i] {
			t.Errorf("HeightsKM[%d] = %v, want %v", i, g.HeightsKM[i], want[i])
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	g, err := ParseGrid("nw(55,-130) se(20,-60) s(0.01,0.01) h(0,3,Uniform1Km)")
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	key := g.GetParseUniqueString()
	// A grid parsed from the same string should produce an equal area
	// and the same fingerprint, even though heightParse is excluded
	// from Equal.
	g2, err := ParseGrid("nw(55,-130) se(20,-60) s(0.01,0.01) h(0,3,Uniform1Km)")
	if err != nil {
		t.Fatalf("ParseGrid (2nd): %v", err)
	}
	if !g.Equal(g2) {
		t.Errorf("two parses of the same grid string are not Equal")
	}
	if key != g2.GetParseUniqueString() {
		t.Errorf("fingerprint mismatch: %q vs %q", key, g2.GetParseUniqueString())
	}
}

func TestTileS2(t *testing.T) {
	g := &LLCoverageArea{NumX: 700, NumY: 300, LatSpacingDegs: 0.01, LonSpacingDegs: 0.01,
		NWLatDegs: 55, SELatDegs: 52, NWLonDegs: -130, SELonDegs: -123}
	tiles, ok := g.Tile(3, 2)
	if !ok {
		t.Fatalf("Tile(3,2) refused")
	}
	if len(tiles) != 6 {
		t.Fatalf("got %d tiles, want 6", len(tiles))
	}

	// 700/3 = 233 remainder 1: in every row, the single leftover column
	// cell goes to that row's first tile (tiles 0 and 3), so both rows
	// span all 700 columns.
	if tiles[0].NumX != 234 {
		t.Errorf("tile 0: NumX = %d, want 234", tiles[0].NumX)
	}
	for i := 1; i < len(tiles); i++ {
		want := 233
		if i%3 == 0 {
			want = 234
		}
		if tiles[i].NumX != want {
			t.Errorf("tile %d: NumX = %d, want %d", i, tiles[i].NumX, want)
		}
	}

	totalX := 0
	for col := 0; col < 3; col++ {
		totalX += tiles[col].NumX
	}
	if totalX != 700 {
		t.Errorf("sum of tile widths in row 0 = %d, want 700", totalX)
	}

	for _, tl := range tiles {
		if tl.NumY != 150 {
			t.Errorf("tile NumY = %d, want 150 (300/2 divides evenly)", tl.NumY)
		}
	}
}

func TestTileIdentity(t *testing.T) {
	g := &LLCoverageArea{NumX: 10, NumY: 10, LatSpacingDegs: 1, LonSpacingDegs: 1,
		NWLatDegs: 10, SELatDegs: 0, NWLonDegs: 0, SELonDegs: 10}
	tiles, ok := g.Tile(1, 1)
	if !ok {
		t.Fatalf("Tile(1,1) refused")
	}
	if len(tiles) != 1 {
		t.Fatalf("got %d tiles, want 1", len(tiles))
	}
	if tiles[0].NumX != g.NumX || tiles[0].NumY != g.NumY {
		t.Errorf("Tile(1,1) changed cell counts: %+v", tiles[0])
	}
}

func TestTileRefusesNonPositive(t *testing.T) {
	g := &LLCoverageArea{NumX: 10, NumY: 10, LatSpacingDegs: 1, LonSpacingDegs: 1}
	if _, ok := g.Tile(0, 2); ok {
		t.Errorf("Tile(0,2) should refuse")
	}
	if _, ok := g.Tile(2, -1); ok {
		t.Errorf("Tile(2,-1) should refuse")
	}
}

func TestInsetRadarRangeOutsideGrid(t *testing.T) {
	g, err := ParseGrid("nw(45,-100) se(40,-95) s(0.1,0.1) h(0,1,Uniform1Km)")
	if err != nil {
		t.Fatalf("ParseGrid: %v", err)
	}
	// Radar far outside the grid, small range: every side insets to nothing.
	out := g.InsetRadarRange(0, 0, 10)
	if out.NumX != 0 && out.NumY != 0 {
		t.Errorf("expected inset of an out-of-range radar to produce NumX=0 or NumY=0, got NumX=%d NumY=%d", out.NumX, out.NumY)
	}
}
