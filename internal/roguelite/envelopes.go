package roguelite

// Client envelope types.
const (
	MsgJoin           = "join"
	MsgLobbyUpdate    = "lobby_update"
	MsgReady          = "ready"
	MsgStartGame      = "start_game"
	MsgInput          = "input"
	MsgUpdateSettings = "update_settings"
	MsgPickUpgrade    = "pick_upgrade"
	MsgVoteContinue   = "vote_continue"
	MsgLeave          = "leave"
)

// Server envelope types.
const (
	MsgJoined        = "joined"
	MsgLobby         = "lobby"
	MsgState         = "state"
	MsgLevelUp       = "level_up"
	MsgAscension     = "ascension"
	MsgTranscendence = "transcendence"
	MsgBossWarning   = "boss_warning"
	MsgResults       = "results"
	MsgError         = "error"
)

// Inbound is any client envelope; Type selects which fields are read.
// Optional fields are pointers so an absent field leaves the value unchanged.
type Inbound struct {
	Type               string    `json:"type"`
	DisplayName        string    `json:"displayName,omitempty"`
	RoomID             string    `json:"roomId,omitempty"`
	CharacterID        *string   `json:"characterId,omitempty"`
	StarterWeaponID    *string   `json:"starterWeaponId,omitempty"`
	Cosmetic           *Cosmetic `json:"cosmetic,omitempty"`
	BlacklistedWeapons []string  `json:"blacklistedWeapons,omitempty"`
	BlacklistedTokens  []string  `json:"blacklistedTokens,omitempty"`
	Ready              bool      `json:"ready,omitempty"`
	DX                 float64   `json:"dx,omitempty"`
	DY                 float64   `json:"dy,omitempty"`
	CursorX            *float64  `json:"cursorX,omitempty"`
	CursorY            *float64  `json:"cursorY,omitempty"`
	Settings           *Settings `json:"settings,omitempty"`
	UpgradeID          string    `json:"upgradeId,omitempty"`
}

// JoinedMsg confirms a join.
type JoinedMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

// LobbyMsg carries the roster.
type LobbyMsg struct {
	Type  string     `json:"type"`
	Lobby LobbyState `json:"lobby"`
}

// StateMsg carries the world snapshot.
type StateMsg struct {
	Type  string     `json:"type"`
	State *GameState `json:"state"`
}

// LevelUpMsg carries the head of a player's offer queue.
type LevelUpMsg struct {
	Type  string       `json:"type"`
	Offer LevelUpOffer `json:"offer"`
}

// AscensionMsg announces an ascended weapon.
type AscensionMsg struct {
	Type         string `json:"type"`
	PlayerID     string `json:"playerId"`
	WeaponName   string `json:"weaponName"`
	AscendedName string `json:"ascendedName"`
}

// TranscendenceMsg announces a transcended weapon.
type TranscendenceMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	WeaponName string `json:"weaponName"`
}

// BossWarningMsg announces a miniboss or boss spawn.
type BossWarningMsg struct {
	Type     string `json:"type"`
	BossName string `json:"bossName"`
}

// ResultsMsg carries the final result.
type ResultsMsg struct {
	Type   string     `json:"type"`
	Result GameResult `json:"result"`
}

// ErrorMsg reports a rejected envelope to its sender.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorMsg(err error) ErrorMsg {
	return ErrorMsg{Type: MsgError, Message: err.Error()}
}

// Event is an envelope produced by the engine. An empty To broadcasts.
type Event struct {
	To  string
	Msg any
}
