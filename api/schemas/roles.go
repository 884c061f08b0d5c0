package schemas

// -- Role Schemas --

// RoleID names a behavior profile.
type RoleID string

const (
	RoleTank   RoleID = "tank"
	RoleHealer RoleID = "healer"
	RoleDPS    RoleID = "dps"
	RolePvP    RoleID = "pvp"
)

// AllRoleIDs lists every role a profile can declare, in display order.
var AllRoleIDs = []RoleID{RoleTank, RoleHealer, RoleDPS, RolePvP}

// Behavior is one rule in a role's priority list: when Trigger evaluates true
// against the belief snapshot and the action passes the cooldown gate, the
// behavior's action becomes the tick's plan.
type Behavior struct {
	Name string `json:"name" yaml:"name"`
	// Trigger is a predicate expression over the belief snapshot, e.g.
	// "health_pct < 20", "has_debuff('poison')", "in_combat and not has_buff('shield')".
	// Parsed and validated at profile load time.
	Trigger   string         `json:"trigger" yaml:"trigger"`
	ActionKey string         `json:"action" yaml:"action"`
	Category  ActionCategory `json:"category" yaml:"category"`
	Target    string         `json:"target,omitempty" yaml:"target,omitempty"`
	Priority  int            `json:"priority" yaml:"priority"`
	// Result is the expected outcome string copied into the plan.
	Result string `json:"result,omitempty" yaml:"result,omitempty"`
}

// RoleProfile is the static, read-only configuration for one role. Loaded
// and validated once; swapped only at session boundaries.
type RoleProfile struct {
	ID RoleID `json:"id" yaml:"id"`
	// Behaviors are evaluated in descending Priority; equal priorities keep
	// declaration order.
	Behaviors []Behavior `json:"behaviors" yaml:"behaviors"`
	// AbilityPriority lists ability keys in preferred cast order, used for
	// filler decisions when several behaviors would fire.
	AbilityPriority []string `json:"ability_priority,omitempty" yaml:"ability_priority,omitempty"`
	// PreferredWeaponSet names the weapon set this role wants equipped;
	// empty means no preference.
	PreferredWeaponSet string `json:"preferred_weapon_set,omitempty" yaml:"preferred_weapon_set,omitempty"`
}

// GroupComposition is the external input to role switching, sampled at
// session or group-change boundaries only.
type GroupComposition struct {
	Size      int  `json:"size"`
	HasHealer bool `json:"has_healer"`
	HasTank   bool `json:"has_tank"`
	// PvP marks battleground/duel context, which flips the solo default.
	PvP bool `json:"pvp"`
}

// WeaponSet is one row of the static weapons table.
type WeaponSet struct {
	Name     string   `json:"name" yaml:"name"`
	SwapKey  string   `json:"swap_key" yaml:"swap_key"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	TwoHand  bool     `json:"two_hand,omitempty" yaml:"two_hand,omitempty"`
	MinLevel int      `json:"min_level,omitempty" yaml:"min_level,omitempty"`
}

// QuestDef is one row of the static quest table, used to label quest-marker
// detections in the session log.
type QuestDef struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Marker string `json:"marker" yaml:"marker"`
	NPC    string `json:"npc,omitempty" yaml:"npc,omitempty"`
}
