package sheets

import (
	"testing"
)

func TestValuesToGrid(t *testing.T) {
	t.Parallel()

	g := ValuesToGrid([][]interface{}{
		{"TenKhachHang", "MaKhach"},
		{"Công ty A", "KH01", nil, float64(12)},
	})
	if len(g) != 2 {
		t.Fatalf("rows got=%d", len(g))
	}
	if g[1].Text(1) != "KH01" || g[1].Text(2) != "" || g[1].Text(3) != "12" {
		t.Fatalf("row got=%v", g[1])
	}
}
