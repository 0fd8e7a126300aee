// services/lobby_service.go
package services

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"rps-arena/models"
)

const (
	maxNameRunes     = 32
	maxReactionRunes = 16

	defaultCountdownStep      = time.Second
	defaultMatchCompleteDelay = 3 * time.Second
	defaultChatRate           = 2
	chatBurst                 = 5
)

// ReplaySink accepts finished replays for archiving. Enqueue must not block.
type ReplaySink interface {
	Enqueue(r models.Replay) bool
}

// Player is a connected client. Its ID is the connection ID.
type Player struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	CurrentGame       string `json:"currentGame,omitempty"`
	CurrentTournament string `json:"currentTournament,omitempty"`
	Spectating        string `json:"spectating,omitempty"`

	limiter *rate.Limiter
}

type LobbyConfig struct {
	MatchCompleteDelay time.Duration
	ChatRatePerSec     float64
}

type LobbyDeps struct {
	Games       *GameService
	Tournaments *TournamentService
	Replays     *ReplayService
	AI          *AIOpponent
	Notifier    Notifier
	Scheduler   Scheduler
	Archive     ReplaySink // optional
	Log         *slog.Logger
}

// gameMeta is what the directory knows about a live session beyond the engine.
type gameMeta struct {
	mode      models.GameMode
	step      time.Duration
	moveTimer time.Duration
}

// LobbyService is the session directory: it tracks connected players and the
// matchmaking queue, routes client actions to the engines and drives each
// match's timeline.
type LobbyService struct {
	mu      sync.Mutex
	players map[string]*Player
	queue   []string
	live    map[string]gameMeta

	games       *GameService
	tournaments *TournamentService
	replays     *ReplayService
	ai          *AIOpponent
	notify      Notifier
	sched       Scheduler
	archive     ReplaySink
	cfg         LobbyConfig
	log         *slog.Logger
	newID       func() string
}

func NewLobbyService(d LobbyDeps, cfg LobbyConfig) *LobbyService {
	if cfg.MatchCompleteDelay <= 0 {
		cfg.MatchCompleteDelay = defaultMatchCompleteDelay
	}
	if cfg.ChatRatePerSec <= 0 {
		cfg.ChatRatePerSec = defaultChatRate
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return &LobbyService{
		players:     make(map[string]*Player),
		live:        make(map[string]gameMeta),
		games:       d.Games,
		tournaments: d.Tournaments,
		replays:     d.Replays,
		ai:          d.AI,
		notify:      d.Notifier,
		sched:       d.Scheduler,
		archive:     d.Archive,
		cfg:         cfg,
		log:         log,
		newID:       uuid.NewString,
	}
}

// Connect registers a connection with a default display name.
func (l *LobbyService) Connect(connID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.players[connID]; ok {
		return
	}
	l.players[connID] = &Player{
		ID:      connID,
		Name:    normalizeName("", connID),
		limiter: rate.NewLimiter(rate.Limit(l.cfg.ChatRatePerSec), chatBurst),
	}
	l.log.Info("player_connected", "conn_id", connID)
}

// Player returns a copy of the connection's directory entry.
func (l *LobbyService) Player(connID string) (Player, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.players[connID]
	if !ok {
		return Player{}, false
	}
	out := *p
	out.limiter = nil
	return out, true
}

func (l *LobbyService) player(connID string) (Player, error) {
	p, ok := l.Player(connID)
	if !ok {
		return Player{}, notFound("connection", connID)
	}
	return p, nil
}

// update mutates the directory entry under the lock.
func (l *LobbyService) update(connID string, fn func(p *Player)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.players[connID]; ok {
		fn(p)
	}
}

func (l *LobbyService) allow(connID string) error {
	l.mu.Lock()
	p, ok := l.players[connID]
	l.mu.Unlock()
	if !ok {
		return notFound("connection", connID)
	}
	if !p.limiter.Allow() {
		return ErrRateLimited
	}
	return nil
}

// Disconnect removes the connection and tears down whatever it was part of.
// A casual game is destroyed and the opponent told; a tournament match is
// forfeited to the opponent.
func (l *LobbyService) Disconnect(connID string) {
	l.mu.Lock()
	p, ok := l.players[connID]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.players, connID)
	l.removeQueuedLocked(connID)
	gameID, tournamentID, spectating := p.CurrentGame, p.CurrentTournament, p.Spectating
	l.mu.Unlock()

	l.log.Info("player_disconnected", "conn_id", connID)

	if gameID != "" {
		l.notify.Leave(gameID, connID)
		if g, err := l.games.Get(gameID); err == nil {
			switch {
			case g.State == models.GameFinished:
				l.completeMatch(gameID, g.Winner())
			case g.TournamentID != "":
				l.forfeit(g, connID)
			default:
				l.abandon(gameID, connID)
			}
		}
	}

	if tournamentID != "" {
		l.notify.Leave(tournamentID, connID)
		if t, err := l.tournaments.LeaveWaitingRoom(tournamentID, connID); err == nil && t.State == models.TournamentWaitingRoom {
			l.sendWaitingRoom(t)
		}
	}
	if spectating != "" {
		_ = l.tournaments.RemoveSpectator(spectating, connID)
		l.notify.Leave(spectating, connID)
	}
	l.ai.ClearHistory(connID)
}

func (l *LobbyService) removeQueuedLocked(connID string) {
	for i, id := range l.queue {
		if id == connID {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

// abandon ends a casual game because connID left.
func (l *LobbyService) abandon(gameID, connID string) {
	g, err := l.games.Get(gameID)
	if err != nil || !l.games.DeleteSession(gameID) {
		return
	}
	l.sched.Cancel(gameID)
	l.notify.Broadcast(gameID, errorEvent("Opponent disconnected"))
	l.releaseGame(gameID, g)
	l.log.Info("game_abandoned", "session_id", gameID, "conn_id", connID)
}

// JoinGame starts a game against the AI or queues for a quick match.
func (l *LobbyService) JoinGame(connID string, mode models.GameMode, name string) error {
	switch mode {
	case models.ModeAI, models.ModeQuickMatch:
	default:
		return invalid("mode", "must be ai or quickmatch")
	}
	current, err := l.player(connID)
	if err != nil {
		return err
	}
	if err := l.ensureIdle(current); err != nil {
		return err
	}

	l.mu.Lock()
	p, ok := l.players[connID]
	if !ok {
		l.mu.Unlock()
		return notFound("connection", connID)
	}
	if p.CurrentGame != "" {
		l.mu.Unlock()
		return conflict("already in a game")
	}
	for _, id := range l.queue {
		if id == connID {
			l.mu.Unlock()
			return conflict("already searching for an opponent")
		}
	}
	p.Name = normalizeName(name, connID)
	display := p.Name

	if mode == models.ModeAI {
		l.mu.Unlock()
		return l.startAIGame(connID, display)
	}

	l.queue = append(l.queue, connID)
	if len(l.queue) < 2 {
		l.mu.Unlock()
		l.notify.Send(connID, Event{Type: EventGameState, Data: GameStatePayload{
			State:   "waiting",
			Message: "Searching for opponent...",
		}})
		return nil
	}
	first, second := l.players[l.queue[0]], l.players[l.queue[1]]
	l.queue = l.queue[2:]
	a := models.PlayerSlot{ID: first.ID, Name: first.Name}
	b := models.PlayerSlot{ID: second.ID, Name: second.Name}
	l.mu.Unlock()

	gameID := l.newID()
	if _, err := l.games.CreateSession(gameID, a, b, false, models.BestOf3); err != nil {
		return err
	}
	l.attach(gameID, gameMeta{mode: models.ModeQuickMatch, step: defaultCountdownStep}, a.ID, b.ID)
	l.notify.Broadcast(gameID, Event{Type: EventGameState, Data: GameStatePayload{
		GameID:  gameID,
		Mode:    models.ModeQuickMatch,
		State:   "playing",
		Player1: a.Name,
		Player2: b.Name,
		Round:   1,
	}})
	l.log.Info("match_created", "session_id", gameID, "player1", a.Name, "player2", b.Name)
	return nil
}

func (l *LobbyService) startAIGame(connID, name string) error {
	gameID := l.newID()
	human := models.PlayerSlot{ID: connID, Name: name}
	bot := models.PlayerSlot{ID: "ai_" + l.newID(), Name: "AI"}
	if _, err := l.games.CreateSession(gameID, human, bot, true, models.BestOf3); err != nil {
		return err
	}
	l.attach(gameID, gameMeta{mode: models.ModeAI, step: defaultCountdownStep}, connID)
	l.notify.Send(connID, Event{Type: EventGameState, Data: GameStatePayload{
		GameID:   gameID,
		Mode:     models.ModeAI,
		State:    "playing",
		Opponent: "AI",
		Round:    1,
	}})
	return nil
}

// attach records the session in the directory and joins its humans to the room.
func (l *LobbyService) attach(gameID string, meta gameMeta, humans ...string) {
	l.mu.Lock()
	l.live[gameID] = meta
	for _, id := range humans {
		if p, ok := l.players[id]; ok {
			p.CurrentGame = gameID
		}
	}
	l.mu.Unlock()
	for _, id := range humans {
		l.notify.Join(gameID, id)
	}
}

// releaseGame clears the directory's references to a deleted session.
func (l *LobbyService) releaseGame(gameID string, g models.GameSession) {
	l.mu.Lock()
	delete(l.live, gameID)
	for _, id := range []string{g.Player1.ID, g.Player2.ID} {
		if p, ok := l.players[id]; ok && p.CurrentGame == gameID {
			p.CurrentGame = ""
		}
	}
	l.mu.Unlock()
	l.sched.Cancel(gameID)
	l.notify.CloseRoom(gameID)
}

func (l *LobbyService) meta(gameID string) (gameMeta, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.live[gameID]
	return m, ok
}

// MakeMove submits the caller's move in their current game.
func (l *LobbyService) MakeMove(connID, rawMove string) error {
	p, err := l.player(connID)
	if err != nil {
		return err
	}
	if p.CurrentGame == "" {
		return conflict("Not in a game")
	}
	move, ok := models.ParseMove(rawMove)
	if !ok {
		return invalid("move", "must be rock, paper or scissors")
	}
	return l.submit(p.CurrentGame, connID, move)
}

// submit records playerID's move. Against the AI the reply is chosen before
// the human move is learned, then both are played.
func (l *LobbyService) submit(gameID, playerID string, move models.Move) error {
	g, err := l.games.Get(gameID)
	if err != nil {
		return err
	}
	opp := g.Opponent(playerID)
	if opp == nil {
		return notFound("player in game", playerID)
	}

	var res MoveResult
	if opp.IsAI {
		reply := l.ai.GetMove(playerID)
		if res, err = l.games.SubmitMove(gameID, playerID, string(move)); err != nil {
			return err
		}
		l.ai.RecordMove(playerID, move)
		if !res.Waiting {
			// A stale AI move already closed the round.
			l.playRound(gameID, res)
			return nil
		}
		if res, err = l.games.SubmitMove(gameID, opp.ID, string(reply)); err != nil {
			return err
		}
	} else if res, err = l.games.SubmitMove(gameID, playerID, string(move)); err != nil {
		return err
	}

	if res.Waiting {
		l.notify.Send(playerID, Event{Type: EventGameState, Data: GameStatePayload{
			GameID:  gameID,
			State:   "waiting_for_opponent",
			Message: "Waiting for opponent...",
		}})
		return nil
	}
	l.playRound(gameID, res)
	return nil
}

// playRound runs the countdown, the reveal and, for the last round, the match
// completion. None of it blocks the caller.
func (l *LobbyService) playRound(gameID string, res MoveResult) {
	if res.Round == nil {
		return
	}
	step := defaultCountdownStep
	if m, ok := l.meta(gameID); ok && m.step > 0 {
		step = m.step
	}
	round := *res.Round

	l.notify.Broadcast(gameID, Event{Type: EventCountdown, Data: CountdownPayload{Count: 3}})
	for i, count := range []int{2, 1, 0} {
		l.sched.After(gameID, time.Duration(i+1)*step, func() {
			l.notify.Broadcast(gameID, Event{Type: EventCountdown, Data: CountdownPayload{Count: count}})
		})
	}
	l.sched.After(gameID, 4*step, func() {
		l.notify.Broadcast(gameID, Event{Type: EventReveal, Data: RevealPayload{
			Round:       round.Round,
			Player1Move: round.Player1Move,
			Player2Move: round.Player2Move,
			Winner:      round.Winner,
			Result:      round.Result,
		}})
		if res.GameOver {
			l.sched.After(gameID, l.cfg.MatchCompleteDelay, func() { l.completeMatch(gameID, res.GameWinner) })
			return
		}
		l.armMoveTimer(gameID, res.Session.CurrentRound)
	})
}

// completeMatch is the one teardown path for a finished game. If the session
// was already deleted by a disconnect it does nothing.
func (l *LobbyService) completeMatch(gameID, winner string) {
	g, err := l.games.Get(gameID)
	if err != nil {
		return
	}
	if !l.games.DeleteSession(gameID) {
		return
	}
	stats := statsFor(g, time.Now())
	l.notify.Broadcast(gameID, Event{Type: EventMatchComplete, Data: MatchCompletePayload{Winner: winner, Stats: stats}})
	l.releaseGame(gameID, g)

	replay := l.replays.CreateReplay(g, ReplayMeta{})
	l.autosave(replay, g.TournamentID)
	l.log.Info("match_complete",
		"session_id", gameID,
		"winner", winner,
		"rounds", stats.TotalRounds,
		"replay_id", replay.ID,
	)

	if g.TournamentID != "" {
		l.advanceTournament(g.TournamentID, g.MatchID, g.WinnerID())
	}
}

func (l *LobbyService) autosave(r models.Replay, tournamentID string) {
	if l.archive == nil {
		return
	}
	if tournamentID != "" {
		t, err := l.tournaments.Get(tournamentID)
		if err != nil || !t.Settings.ReplayAutoSave {
			return
		}
	}
	if !l.archive.Enqueue(r) {
		l.log.Warn("replay_archive_queue_full", "replay_id", r.ID)
	}
}

// armMoveTimer plays a random move for any human who has not moved in round
// by the time the tournament's move timer runs out.
func (l *LobbyService) armMoveTimer(gameID string, round int) {
	m, ok := l.meta(gameID)
	if !ok || m.moveTimer <= 0 {
		return
	}
	l.sched.After(gameID, m.moveTimer, func() { l.timeoutRound(gameID, round) })
}

func (l *LobbyService) timeoutRound(gameID string, round int) {
	g, err := l.games.Get(gameID)
	if err != nil || g.State == models.GameFinished || g.CurrentRound != round {
		return
	}
	for _, slot := range []models.PlayerSlot{g.Player1, g.Player2} {
		if slot.IsAI || slot.HasMove() {
			continue
		}
		l.log.Info("move_timer_expired", "session_id", gameID, "player_id", slot.ID, "round", round)
		if err := l.submit(gameID, slot.ID, l.ai.RandomMove()); err != nil {
			l.log.Warn("auto_move_failed", "session_id", gameID, "player_id", slot.ID, "err", err)
		}
	}
}

// CreateTournament opens a waiting room hosted by the caller.
func (l *LobbyService) CreateTournament(connID, name string) (*models.Tournament, error) {
	p, err := l.player(connID)
	if err != nil {
		return nil, err
	}
	if err := l.ensureIdle(p); err != nil {
		return nil, err
	}
	name = normalizeName(name, connID)
	t := l.tournaments.CreateTournament(connID, name)
	l.update(connID, func(p *Player) {
		p.Name = name
		p.CurrentTournament = t.ID
	})
	l.notify.Join(t.ID, connID)
	l.notify.Send(connID, Event{Type: EventWaitingRoomUpdate, Data: WaitingRoomPayload{
		TournamentID: t.ID,
		Players:      t.Players,
		IsHost:       true,
		Settings:     t.Settings,
	}})
	l.log.Info("tournament_created", "tournament_id", t.ID, "host", name)
	return t, nil
}

// ensureIdle rejects a player who is busy elsewhere. A tournament match would
// otherwise replace the player's casual game and orphan it.
func (l *LobbyService) ensureIdle(p Player) error {
	if p.CurrentGame != "" {
		return conflict("already in a game")
	}
	l.mu.Lock()
	queued := slices.Contains(l.queue, p.ID)
	l.mu.Unlock()
	if queued {
		return conflict("already searching for an opponent")
	}
	if p.CurrentTournament == "" {
		return nil
	}
	t, err := l.tournaments.Get(p.CurrentTournament)
	if err != nil || t.State == models.TournamentFinished {
		return nil
	}
	return conflict("already in a tournament")
}

func (l *LobbyService) JoinTournament(connID, tournamentID, name string) error {
	p, err := l.player(connID)
	if err != nil {
		return err
	}
	if err := l.ensureIdle(p); err != nil {
		return err
	}
	name = normalizeName(name, connID)
	t, err := l.tournaments.JoinTournament(tournamentID, connID, name)
	if err != nil {
		return err
	}
	l.update(connID, func(p *Player) {
		p.Name = name
		p.CurrentTournament = tournamentID
	})
	l.notify.Join(tournamentID, connID)
	l.sendWaitingRoom(t)
	l.log.Info("tournament_joined", "tournament_id", tournamentID, "player", name)
	return nil
}

// sendWaitingRoom tells each human player the room state, with their own IsHost.
func (l *LobbyService) sendWaitingRoom(t *models.Tournament) {
	for _, p := range t.Players {
		if p.IsAI {
			continue
		}
		l.notify.Send(p.ID, Event{Type: EventWaitingRoomUpdate, Data: WaitingRoomPayload{
			TournamentID: t.ID,
			Players:      t.Players,
			IsHost:       p.ID == t.HostID,
			Settings:     t.Settings,
		}})
	}
}

func (l *LobbyService) currentTournament(connID string) (string, error) {
	p, err := l.player(connID)
	if err != nil {
		return "", err
	}
	if p.CurrentTournament == "" {
		return "", conflict("Not in a tournament")
	}
	return p.CurrentTournament, nil
}

func (l *LobbyService) UpdateTournamentSettings(connID string, patch models.SettingsPatch) error {
	tid, err := l.currentTournament(connID)
	if err != nil {
		return err
	}
	t, err := l.tournaments.UpdateSettings(tid, connID, patch)
	if err != nil {
		return err
	}
	l.sendWaitingRoom(t)
	return nil
}

func (l *LobbyService) StartTournament(connID string) error {
	tid, err := l.currentTournament(connID)
	if err != nil {
		return err
	}
	t, err := l.tournaments.StartTournament(tid, connID)
	if err != nil {
		return err
	}
	l.notify.Broadcast(tid, Event{Type: EventTournamentStarted, Data: TournamentStartedPayload{
		Bracket:  t.Bracket,
		Settings: t.Settings,
	}})
	l.log.Info("tournament_started", "tournament_id", tid, "players", len(t.Players))
	l.startNextMatches(tid)
	return nil
}

// startNextMatches opens a game session for every playable match.
func (l *LobbyService) startNextMatches(tournamentID string) {
	t, err := l.tournaments.Get(tournamentID)
	if err != nil || t.State != models.TournamentInProgress {
		return
	}
	matches, err := l.tournaments.GetNextMatches(tournamentID)
	if err != nil {
		return
	}
	for _, m := range matches {
		l.startMatch(t, m)
	}
}

func (l *LobbyService) startMatch(t *models.Tournament, m models.Match) {
	gameID := l.newID()
	current, err := l.tournaments.MarkMatchInProgress(t.ID, m.ID, gameID)
	if err != nil {
		// Another completion already started it.
		return
	}

	p1 := models.PlayerSlot{ID: m.Player1.ID, Name: m.Player1.Name, IsAI: m.Player1.IsAI}
	p2 := models.PlayerSlot{ID: m.Player2.ID, Name: m.Player2.Name, IsAI: m.Player2.IsAI}
	g, err := l.games.CreateSession(gameID, p1, p2, false, t.Settings.WinCondition,
		SessionOptions{TournamentID: t.ID, MatchID: m.ID})
	if err != nil {
		l.log.Error("tournament_match_create_failed", "tournament_id", t.ID, "match_id", m.ID, "err", err)
		return
	}

	meta := gameMeta{mode: models.ModeTournament, step: t.Settings.CountdownStep()}
	if t.Settings.MoveTimer != nil {
		meta.moveTimer = time.Duration(*t.Settings.MoveTimer) * time.Second
	}

	var humans, absent []string
	for _, slot := range []models.PlayerSlot{p1, p2} {
		if slot.IsAI {
			continue
		}
		// A player seated in another game cannot take this one.
		if p, ok := l.Player(slot.ID); ok && p.CurrentGame == "" {
			humans = append(humans, slot.ID)
		} else {
			absent = append(absent, slot.ID)
		}
	}
	l.attach(gameID, meta, humans...)

	// The bracket in this update still shows the match as pending; refetch.
	snapshot, err := l.tournaments.Get(t.ID)
	if err == nil {
		l.notify.Broadcast(t.ID, Event{Type: EventTournamentUpdate, Data: TournamentUpdatePayload{
			Bracket:      snapshot.Bracket,
			State:        snapshot.State,
			CurrentMatch: &current,
		}})
	}
	l.notify.Broadcast(gameID, Event{Type: EventGameState, Data: GameStatePayload{
		GameID:       gameID,
		Mode:         models.ModeTournament,
		State:        "playing",
		Player1:      p1.Name,
		Player2:      p2.Name,
		Round:        1,
		TournamentID: t.ID,
		MatchID:      m.ID,
	}})

	switch {
	case len(absent) > 0:
		l.forfeit(g, absent[0])
	case len(humans) == 0:
		l.autoPlay(gameID)
	default:
		l.armMoveTimer(gameID, 1)
	}
}

// autoPlay finishes an AI against AI match at once.
func (l *LobbyService) autoPlay(gameID string) {
	for {
		g, err := l.games.Get(gameID)
		if err != nil {
			return
		}
		if _, err := l.games.SubmitMove(gameID, g.Player1.ID, string(l.ai.RandomMove())); err != nil {
			l.log.Warn("auto_play_failed", "session_id", gameID, "err", err)
			return
		}
		res, err := l.games.SubmitMove(gameID, g.Player2.ID, string(l.ai.RandomMove()))
		if err != nil {
			l.log.Warn("auto_play_failed", "session_id", gameID, "err", err)
			return
		}
		if res.GameOver {
			l.completeMatch(gameID, res.GameWinner)
			return
		}
	}
}

// forfeit ends a tournament match in favour of the player who stayed.
func (l *LobbyService) forfeit(g models.GameSession, leaverID string) {
	if !l.games.DeleteSession(g.ID) {
		return
	}
	l.notify.Broadcast(g.ID, errorEvent("Opponent disconnected"))
	l.releaseGame(g.ID, g)

	winner := g.Opponent(leaverID)
	l.log.Info("match_forfeited", "session_id", g.ID, "tournament_id", g.TournamentID, "leaver", leaverID)
	l.advanceTournament(g.TournamentID, g.MatchID, winner.ID)
}

// advanceTournament reports a match result and schedules the next matches. A
// level game is replayed.
func (l *LobbyService) advanceTournament(tournamentID, matchID, winnerID string) {
	if winnerID == "" {
		if err := l.tournaments.ReopenMatch(tournamentID, matchID); err != nil {
			l.log.Warn("rematch_failed", "tournament_id", tournamentID, "match_id", matchID, "err", err)
			return
		}
		l.sched.After(tournamentID, 0, func() { l.startNextMatches(tournamentID) })
		return
	}

	t, err := l.tournaments.RecordMatchResult(tournamentID, matchID, winnerID)
	if err != nil {
		l.log.Warn("record_match_failed", "tournament_id", tournamentID, "match_id", matchID, "err", err)
		return
	}
	l.notify.Broadcast(tournamentID, Event{Type: EventTournamentUpdate, Data: TournamentUpdatePayload{
		Bracket:  t.Bracket,
		State:    t.State,
		Champion: t.Champion,
	}})
	if t.State == models.TournamentFinished {
		l.log.Info("tournament_finished", "tournament_id", tournamentID, "champion", t.Champion)
		return
	}
	l.sched.After(tournamentID, t.Settings.BreakDuration(), func() { l.startNextMatches(tournamentID) })
}

// SendChatMessage posts to the tournament the caller plays in or watches.
func (l *LobbyService) SendChatMessage(connID, text string) error {
	p, err := l.player(connID)
	if err != nil {
		return err
	}
	tid := firstNonEmpty(p.CurrentTournament, p.Spectating)
	if tid == "" {
		return conflict("Not in a tournament")
	}
	if err := l.allow(connID); err != nil {
		return err
	}
	entry, err := l.tournaments.AddChatMessage(tid, connID, p.Name, norm.NFC.String(text))
	if err != nil {
		return err
	}
	l.notify.Broadcast(tid, Event{Type: EventChatMessage, Data: entry})
	return nil
}

func (l *LobbyService) SendReaction(connID, emoji string) error {
	p, err := l.player(connID)
	if err != nil {
		return err
	}
	tid := firstNonEmpty(p.CurrentTournament, p.Spectating)
	if tid == "" {
		return conflict("Not in a tournament")
	}
	emoji = strings.TrimSpace(emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > maxReactionRunes {
		return invalid("emoji", "must be a short non-empty string")
	}
	t, err := l.tournaments.Get(tid)
	if err != nil {
		return err
	}
	if !t.Settings.ReactionsEnabled {
		return conflict("reactions are disabled")
	}
	if err := l.allow(connID); err != nil {
		return err
	}
	l.notify.Broadcast(tid, Event{Type: EventReaction, Data: ReactionPayload{
		UserID:   connID,
		UserName: p.Name,
		Emoji:    emoji,
	}})
	return nil
}

// Spectate adds the caller to a tournament's audience and sends the bracket.
func (l *LobbyService) Spectate(connID, tournamentID string) error {
	p, err := l.player(connID)
	if err != nil {
		return err
	}
	t, err := l.tournaments.AddSpectator(tournamentID, connID, p.Name)
	if err != nil {
		return err
	}
	l.update(connID, func(p *Player) { p.Spectating = tournamentID })
	l.notify.Join(tournamentID, connID)
	l.notify.Send(connID, Event{Type: EventTournamentUpdate, Data: TournamentUpdatePayload{
		Bracket:  t.Bracket,
		State:    t.State,
		Champion: t.Champion,
	}})
	return nil
}

func (l *LobbyService) RequestReplay(connID, replayID string) error {
	if _, err := l.player(connID); err != nil {
		return err
	}
	playback, err := l.replays.GetPlaybackData(replayID)
	if err != nil {
		return err
	}
	l.notify.Send(connID, Event{Type: EventReplayData, Data: playback})
	return nil
}

// Thinking is the AI's current read on the caller.
func (l *LobbyService) Thinking(connID string) Thinking {
	return l.ai.GetThinking(connID)
}

// Sweep drops stale tournaments along with their pending jobs. Their cached
// replays are evicted; archived copies are left alone.
func (l *LobbyService) Sweep(ttl time.Duration) int {
	removed := l.tournaments.SweepStale(ttl)
	for _, id := range removed {
		l.sched.Cancel(id)
		l.notify.CloseRoom(id)
		for _, r := range l.replays.GetTournamentReplays(id) {
			l.replays.DeleteReplay(r.ID)
		}
	}
	return len(removed)
}

// LobbyStats is a point-in-time count of what the process holds.
type LobbyStats struct {
	Players     int `json:"players"`
	Queued      int `json:"queued"`
	Games       int `json:"games"`
	Tournaments int `json:"tournaments"`
	Replays     int `json:"replays"`
}

func (l *LobbyService) Stats() LobbyStats {
	l.mu.Lock()
	players, queued := len(l.players), len(l.queue)
	l.mu.Unlock()
	return LobbyStats{
		Players:     players,
		Queued:      queued,
		Games:       l.games.Count(),
		Tournaments: l.tournaments.Count(),
		Replays:     l.replays.Count(),
	}
}

// normalizeName returns the trimmed NFC form of a display name, capped in length. An empty name
// becomes "Player " plus the first four characters of the connection ID.
func normalizeName(raw, connID string) string {
	name := norm.NFC.String(strings.TrimSpace(raw))
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	if name != "" {
		return name
	}
	prefix := connID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return "Player " + prefix
}
