package capability

import "github.com/merenda/planning-api/internal/enum"

// Screens and actions the planning pipeline gates on. These mirror the
// permission rows of the surrounding admin application; the pipeline only
// ever asks "may this role perform this action on this screen".
const (
	ScreenNeeds         = "needs_planning"
	ScreenSubstitutions = "needs_substitutions"
	ScreenAdmin         = "needs_admin"

	ActionView    = "view"
	ActionAdjust  = "adjust"
	ActionAdvance = "advance"
	ActionExport  = "export"
	ActionManage  = "manage"
)

type key struct {
	role, screen, action string
}

var grants = map[key]bool{}

func grant(role, screen string, actions ...string) {
	for _, a := range actions {
		grants[key{role, screen, a}] = true
	}
}

func init() {
	grant(enum.RoleAdmin, ScreenNeeds, ActionView, ActionAdjust, ActionAdvance, ActionExport)
	grant(enum.RoleAdmin, ScreenSubstitutions, ActionView, ActionManage)
	grant(enum.RoleAdmin, ScreenAdmin, ActionManage)

	grant(enum.RoleNutritionist, ScreenNeeds, ActionView, ActionAdjust, ActionAdvance, ActionExport)
	grant(enum.RoleNutritionist, ScreenSubstitutions, ActionView, ActionManage)

	grant(enum.RoleCoordination, ScreenNeeds, ActionView, ActionAdjust, ActionAdvance, ActionExport)
	grant(enum.RoleCoordination, ScreenSubstitutions, ActionView)

	grant(enum.RoleLogistics, ScreenNeeds, ActionView, ActionExport)
}

// CanEdit reports whether the role may perform the action on the screen.
// Unknown roles, screens, and actions are denied.
func CanEdit(role, screen, action string) bool {
	return grants[key{role, screen, action}]
}
