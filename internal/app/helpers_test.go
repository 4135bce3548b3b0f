package app

import "github.com/chmouel/lazyconflict/internal/theme"

func m0Theme() *theme.Theme {
	return theme.GetTheme(theme.DefaultDark())
}
