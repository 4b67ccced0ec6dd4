package types

// RegionMessageKind is the closed set of outbound protocol messages.
type RegionMessageKind string

const (
	MsgMessage        RegionMessageKind = "message"
	MsgRemoveItem     RegionMessageKind = "remove_item"
	MsgTransferEntity RegionMessageKind = "transfer_entity"
	MsgMultipleChoice RegionMessageKind = "multiple_choice"
	MsgLog            RegionMessageKind = "log"
)

// Choice is one option of a multiple-choice prompt.
type Choice struct {
	ItemID int64   `json:"item_id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Seller int64   `json:"seller"`
	Buyer  int64   `json:"buyer"`
}

// RegionMessage is pushed to the parent process. Zero ids mean absent.
type RegionMessage struct {
	Kind     RegionMessageKind `json:"kind"`
	Region   int               `json:"region"`
	Entity   int64             `json:"entity,omitempty"`
	Item     int64             `json:"item,omitempty"`
	Receiver int64             `json:"receiver,omitempty"`
	Text     string            `json:"text,omitempty"`
	Category string            `json:"category,omitempty"`

	Transfer     *Instance `json:"transfer,omitempty"`
	TargetRegion int       `json:"target_region,omitempty"`
	RegionName   string    `json:"region_name,omitempty"`
	Destination  string    `json:"destination,omitempty"`

	Choices []Choice `json:"choices,omitempty"`
}

// Light is a light source visible this tick.
type Light struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Intensity float64 `json:"intensity"`
	Range     float64 `json:"range"`
}

// CharacterData is a visible character in a player's region.
type CharacterData struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Position           Position  `json:"position"`
	OldPosition        *Position `json:"old_position,omitempty"`
	MaxTransitionTime  int       `json:"max_transition_time"`
	CurrTransitionTime int       `json:"curr_transition_time"`
	Tile               Tile      `json:"tile"`
}

// Displacement overrides the tile shown at a cell for one tick.
type Displacement struct {
	Cell Cell `json:"cell"`
	Tile Tile `json:"tile"`
}

// Screen is the payload sent when a player's screen changes.
type Screen struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
}

// Snapshot is the per-player client update produced once per tick.
type Snapshot struct {
	ID         int64  `json:"id"`
	Tick       int64  `json:"tick"`
	ScreenSize [2]int `json:"screen_size"`
	TileSize   int    `json:"tile_size"`

	Position           *Position `json:"position,omitempty"`
	OldPosition        *Position `json:"old_position,omitempty"`
	MaxTransitionTime  int       `json:"max_transition_time"`
	CurrTransitionTime int       `json:"curr_transition_time"`
	Tile               *Tile     `json:"tile,omitempty"`

	Screen *Screen `json:"screen,omitempty"`
	Region *Region `json:"region,omitempty"`

	Displacements []Displacement  `json:"displacements"`
	Characters    []CharacterData `json:"characters"`
	Lights        []Light         `json:"lights"`
	Messages      []MessageData   `json:"messages"`
	Audio         []string        `json:"audio"`
}

// TickTrace is what a tick hands to the trace sinks.
type TickTrace struct {
	Region int          `json:"region"`
	Tick   int64        `json:"tick"`
	Fired  []Fired      `json:"fired"`
	Debug  []DebugValue `json:"debug,omitempty"`
}

// RemoteAction is player input arriving from a transport. A non-empty Join
// asks for a new player of that name; Reply then receives its id, or 0 on
// failure.
type RemoteAction struct {
	Player int64        `json:"player,omitempty"`
	Join   string       `json:"join,omitempty"`
	Input  string       `json:"input,omitempty"`
	Reply  chan<- int64 `json:"-"`
}
