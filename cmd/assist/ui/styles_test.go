package ui

import "testing"

func TestThemeByName(t *testing.T) {
	if !ThemeByName("dark").IsDark {
		t.Error("expected dark theme")
	}
	if ThemeByName("light").IsDark {
		t.Error("expected light theme")
	}
	if ThemeByName("LIGHT ").IsDark {
		t.Error("expected name matching to ignore case and spacing")
	}
}

func TestDetectThemeRespectsColorFgBg(t *testing.T) {
	t.Setenv("COLORFGBG", "15;0")
	if !DetectTheme().IsDark {
		t.Error("expected dark theme for dark background index")
	}

	t.Setenv("COLORFGBG", "0;15")
	t.Setenv("ASSIST_DARK_MODE", "")
	if DetectTheme().IsDark {
		t.Error("expected light theme for light background index")
	}
}

func TestRenderDivider(t *testing.T) {
	if got := DefaultStyles().RenderDivider(0); got != "" {
		t.Errorf("expected empty divider for zero width, got %q", got)
	}
}
