package poly

import (
	"math"
	"testing"
)

func TestParse_Eval(t *testing.T) {
	names := []string{"x", "y"}
	tests := []struct {
		expr  string
		point []float64
		want  float64
	}{
		{"x", []float64{3, 0}, 3},
		{"x + y", []float64{1, 2}, 3},
		{"x - y", []float64{1, 2}, -1},
		{"2*x*y", []float64{3, 4}, 24},
		{"x^2 + y^2", []float64{3, 4}, 25},
		{"-x^2", []float64{2, 0}, -4},
		{"(x + y)^2", []float64{1, 2}, 9},
		{"x^2*y^2*(x^2 + y^2 - 1) + 1/27", []float64{1, 1}, 1 + 1.0/27},
		{"x/2", []float64{5, 0}, 2.5},
		{"1.5e2*x", []float64{2, 0}, 300},
		{"3", []float64{7, 7}, 3},
		{"x - 2*x + x", []float64{4, 0}, 0},
	}

	for _, tt := range tests {
		p, err := Parse(tt.expr, names)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.expr, err)
			continue
		}
		if got := p.Eval(tt.point); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Parse(%q).Eval(%v) = %v, want %v", tt.expr, tt.point, got, tt.want)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	names := []string{"x", "y"}
	exprs := []string{
		"",
		"x +",
		"x +* 2",
		"z",
		"x^y",
		"x^-2",
		"(x + y",
		"x / y",
		"x / 0",
		"x $ y",
	}

	for _, expr := range exprs {
		if _, err := Parse(expr, names); err == nil {
			t.Errorf("Parse(%q) should fail", expr)
		}
	}
}

func TestParse_NoVariables(t *testing.T) {
	if _, err := Parse("x", nil); err == nil {
		t.Error("Parse without declared variables should fail")
	}
	if _, err := Parse("x", []string{"x", "x"}); err == nil {
		t.Error("Parse with duplicate variables should fail")
	}
}

func TestParse_UnderscoreNames(t *testing.T) {
	p, err := Parse("x_1^2 + x_2", []string{"x_1", "x_2"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := p.Eval([]float64{3, 4}); got != 13 {
		t.Errorf("Eval = %v, want 13", got)
	}
}

func TestMustParse_PanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on a bad expression")
		}
	}()
	MustParse("x +", []string{"x"})
}

func TestParseVars(t *testing.T) {
	names, err := ParseVars("x, y,z")
	if err != nil {
		t.Fatalf("ParseVars failed: %v", err)
	}
	if len(names) != 3 || names[0] != "x" || names[1] != "y" || names[2] != "z" {
		t.Errorf("ParseVars = %v", names)
	}

	if _, err := ParseVars("x,,y"); err == nil {
		t.Error("ParseVars should reject empty names")
	}
}

func TestVarNames(t *testing.T) {
	names := VarNames(3)
	if len(names) != 3 || names[0] != "x0" || names[2] != "x2" {
		t.Errorf("VarNames = %v", names)
	}
}
