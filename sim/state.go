package sim

// GameOverReason is the terminal condition that ended a simulation.
type GameOverReason string

const (
	GameOverNone            GameOverReason = "NONE"
	ExcessivePacketLoss     GameOverReason = "EXCESSIVE_PACKET_LOSS"
	TimeLimitExceeded       GameOverReason = "TIME_LIMIT_EXCEEDED"
	NetworkDisconnected     GameOverReason = "NETWORK_DISCONNECTED"
	ExcessiveSystemFailures GameOverReason = "EXCESSIVE_SYSTEM_FAILURES"
)

// timeLimitGrace is the slack past the level duration before an empty network
// still times out.
const timeLimitGrace = 5.0

// earlyCompletionMinTime gates the early-completion path for non-tutorial
// levels.
const earlyCompletionMinTime = 5.0

// levelStartSnapshot captures the restartable slice of state at simulation
// start.
type levelStartSnapshot struct {
	coins               int
	lostPacketsCount    int
	remainingWireLength float64
}

// GameState is the mutable simulation context owned by the engine.
type GameState struct {
	Level *GameLevel

	RemainingWireLength float64
	Coins               int
	LostPacketsCount    int
	ActivePackets       []*Packet

	LevelTimer       float64
	TemporalProgress float64

	Paused        bool
	GameOver      bool
	LevelComplete bool

	LastGameOverReason GameOverReason

	snapshot *levelStartSnapshot
}

// NewGameState initializes state for a level. Wires already present in the
// level file count as pre-consumed budget.
func NewGameState(level *GameLevel, settings Settings) *GameState {
	st := &GameState{
		Level:              level,
		Coins:              0,
		LastGameOverReason: GameOverNone,
	}
	st.RemainingWireLength = level.InitialWireLength
	for _, w := range level.Wires {
		if w.Active {
			st.RemainingWireLength -= w.TotalLength(settings.Smooth())
		}
	}
	return st
}

// AddCoins credits the player.
func (st *GameState) AddCoins(amount int) { st.Coins += amount }

// SpendCoins debits the player if the balance covers the amount.
func (st *GameState) SpendCoins(amount int) bool {
	if st.Coins < amount {
		return false
	}
	st.Coins -= amount
	return true
}

// TotalInjectedPackets is the size of the level schedule.
func (st *GameState) TotalInjectedPackets() int {
	if st.Level == nil {
		return 0
	}
	return len(st.Level.PacketSchedule)
}

// TotalDeliveredPackets sums delivery counters across reference sinks.
func (st *GameState) TotalDeliveredPackets() int {
	total := 0
	for _, s := range st.Level.Systems {
		if s.Kind == ReferenceSystem {
			total += s.DeliveredCount
		}
	}
	return total
}

// PacketLossPercentage is lost/injected*100, in [0,100].
func (st *GameState) PacketLossPercentage() float64 {
	injected := st.TotalInjectedPackets()
	if injected == 0 {
		return 0
	}
	return float64(st.LostPacketsCount) / float64(injected) * 100.0
}

// allInjectionsExecuted reports whether every scheduled injection has been
// placed on a wire.
func (st *GameState) allInjectionsExecuted() bool {
	for _, inj := range st.Level.PacketSchedule {
		if !inj.Executed {
			return false
		}
	}
	return true
}

// CheckGameOver evaluates the game-over predicates in fixed order and records
// the first matching reason: excessive loss, time limit, disconnection,
// excessive failures.
func (st *GameState) CheckGameOver(settings Settings) bool {
	if st.PacketLossPercentage() > 50.0 {
		st.LastGameOverReason = ExcessivePacketLoss
		return true
	}
	if st.Level != nil && st.LevelTimer > st.Level.LevelDuration {
		if len(st.ActivePackets) > 0 || st.LevelTimer > st.Level.LevelDuration+timeLimitGrace {
			st.LastGameOverReason = TimeLimitExceeded
			return true
		}
	}
	if st.networkDisconnected() {
		st.LastGameOverReason = NetworkDisconnected
		return true
	}
	if st.excessiveFailedSystems(settings) {
		st.LastGameOverReason = ExcessiveSystemFailures
		return true
	}
	st.LastGameOverReason = GameOverNone
	return false
}

// CheckLevelComplete evaluates the completion predicate: everything injected,
// nothing in flight, acceptable loss, and either the timer has elapsed or the
// early-completion guard holds. Tutorial levels complete on timer elapse alone
// once the schedule has run.
func (st *GameState) CheckLevelComplete() bool {
	if st.Level == nil {
		return false
	}
	timeElapsed := st.LevelTimer >= st.Level.LevelDuration
	allExecuted := st.allInjectionsExecuted()

	if st.Level.Tutorial && timeElapsed && allExecuted {
		return true
	}
	if !allExecuted || len(st.ActivePackets) > 0 {
		return false
	}
	if st.PacketLossPercentage() > 50.0 {
		return false
	}
	if timeElapsed {
		return true
	}
	if st.Level.Tutorial {
		return false
	}
	return st.TotalDeliveredPackets() >= 1 && st.LevelTimer >= earlyCompletionMinTime
}

// networkDisconnected reports whether no directed path exists from any
// non-failed source to any non-failed destination over active wires. Tutorial
// levels fall back to undirected reachability.
func (st *GameState) networkDisconnected() bool {
	lvl := st.Level
	if lvl == nil {
		return false
	}
	sources := lvl.SourceSystems()
	destinations := lvl.DestinationSystems()
	if len(sources) == 0 || len(destinations) == 0 {
		return false
	}

	destIDs := make(map[string]bool, len(destinations))
	for _, d := range destinations {
		if !d.Failed {
			destIDs[d.ID] = true
		}
	}

	if st.anyDestinationReachable(sources, destIDs, false) {
		return false
	}
	if lvl.Tutorial && st.anyDestinationReachable(sources, destIDs, true) {
		return false
	}
	return true
}

func (st *GameState) anyDestinationReachable(sources []*System, destIDs map[string]bool, undirected bool) bool {
	adj := make(map[string][]string)
	for _, w := range st.Level.Wires {
		if !w.Active || w.Destroyed || w.src == nil || w.dst == nil {
			continue
		}
		a, b := w.src.system, w.dst.system
		if a == nil || b == nil || a.Failed || b.Failed {
			continue
		}
		adj[a.ID] = append(adj[a.ID], b.ID)
		if undirected {
			adj[b.ID] = append(adj[b.ID], a.ID)
		}
	}
	for _, src := range sources {
		if src.Failed {
			continue
		}
		visited := map[string]bool{src.ID: true}
		queue := []string{src.ID}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if destIDs[cur] {
				return true
			}
			for _, next := range adj[cur] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return false
}

// excessiveFailedSystems reports whether permanently failed systems exceed the
// configured percentage.
func (st *GameState) excessiveFailedSystems(settings Settings) bool {
	if st.Level == nil || len(st.Level.Systems) == 0 {
		return false
	}
	failed := 0
	for _, s := range st.Level.Systems {
		if s.Failed {
			failed++
		}
	}
	pct := float64(failed) * 100.0 / float64(len(st.Level.Systems))
	return pct > settings.FailedSystemsGameOverPercent
}

// SaveLevelStartSnapshot captures coins, loss count, and wire budget for
// restart.
func (st *GameState) SaveLevelStartSnapshot() {
	st.snapshot = &levelStartSnapshot{
		coins:               st.Coins,
		lostPacketsCount:    st.LostPacketsCount,
		remainingWireLength: st.RemainingWireLength,
	}
}

// RestoreLevelStart rewinds the restartable state and clears per-run progress.
func (st *GameState) RestoreLevelStart() {
	if st.snapshot != nil {
		st.Coins = st.snapshot.coins
		st.LostPacketsCount = st.snapshot.lostPacketsCount
		st.RemainingWireLength = st.snapshot.remainingWireLength
	}
	st.TemporalProgress = 0
	st.LevelTimer = 0
	st.Paused = false
	st.GameOver = false
	st.LevelComplete = false
	st.ActivePackets = nil
	st.LastGameOverReason = GameOverNone
}
