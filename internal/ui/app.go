// Package ui is the terminal front end. The root App model owns all feed
// state; every mutation happens inside Update, and remote calls run as
// commands that report back through typed messages.
package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/infblueocean/flock/internal/bus"
	"github.com/infblueocean/flock/internal/feed"
)

// ItemCache is the offline snapshot storage the app reads at startup and
// refreshes after page loads. May be nil.
type ItemCache interface {
	Load(subject feed.Subject) ([]feed.Item, error)
	SaveItems(subject feed.Subject, items []feed.Item) error
	Remove(itemID int64) error
}

// Options wires the app's collaborators.
type Options struct {
	Source       feed.Source
	Cache        ItemCache
	Events       <-chan bus.Event
	Viewer       feed.Viewer
	PinPolicy    feed.PinPolicy
	ShowCensored bool

	// OnCreated raises the live notifier's high-water mark when the
	// viewer creates an item locally, so it is not echoed back.
	OnCreated func(itemID int64)
}

type cacheSavedMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// sessions is a stack: the global timeline at the bottom, profile
	// views pushed above it. The top session receives input.
	sessions []*session
	nextID   int

	compose       composer
	pendingDelete int64 // item id awaiting y/n, 0 when none

	spinner spinner.Model
	width   int
	height  int
	ready   bool
}

// NewApp builds the app with the global timeline mounted.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#58a6ff"))

	a := App{opts: opts, compose: newComposer(), spinner: sp}
	a.sessions = append(a.sessions, newSession(
		a.nextID, feed.SubjectAll, "Home", opts.Viewer, opts.PinPolicy))
	a.nextID++
	return a
}

func (a App) top() *session { return a.sessions[len(a.sessions)-1] }

func (a App) findSession(id int) *session {
	for _, s := range a.sessions {
		if s.id == id {
			return s
		}
	}
	return nil
}

// Init loads the offline snapshot, requests the first page and starts
// listening for live events.
func (a App) Init() tea.Cmd {
	home := a.sessions[0]
	cmds := []tea.Cmd{a.spinner.Tick, a.waitForEvent()}
	if a.opts.Cache != nil {
		cmds = append(cmds, a.loadCacheCmd(home.id, home.subject))
	}
	if req, ok := home.pager.Begin(); ok {
		cmds = append(cmds, a.fetchPageCmd(home.id, req))
	}
	return tea.Batch(cmds...)
}

// Commands --------------------------------------------------------------------

func (a App) waitForEvent() tea.Cmd {
	if a.opts.Events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-a.opts.Events
		if !ok {
			return nil
		}
		return LiveEventMsg{Event: e}
	}
}

func (a App) loadCacheCmd(sid int, subject feed.Subject) tea.Cmd {
	return func() tea.Msg {
		items, err := a.opts.Cache.Load(subject)
		if err != nil || len(items) == 0 {
			return nil
		}
		return CacheLoadedMsg{SessionID: sid, Items: items}
	}
}

func (a App) saveCacheCmd(subject feed.Subject, items []feed.Item) tea.Cmd {
	if a.opts.Cache == nil {
		return nil
	}
	return func() tea.Msg {
		_ = a.opts.Cache.SaveItems(subject, items)
		return cacheSavedMsg{}
	}
}

func (a App) fetchPageCmd(sid int, req feed.PageRequest) tea.Cmd {
	return func() tea.Msg {
		items, err := a.opts.Source.FetchPage(context.Background(), req.Subject, req.Page)
		return PageLoadedMsg{SessionID: sid, Req: req, Items: items, Err: err}
	}
}

func (a App) refreshCmd(sid int, subject feed.Subject) tea.Cmd {
	return func() tea.Msg {
		items, err := a.opts.Source.FetchPage(context.Background(), subject, 1)
		return RefreshMsg{SessionID: sid, Subject: subject, Items: items, Err: err}
	}
}

func (a App) likeCmd(sid int, op feed.LikeOp) tea.Cmd {
	return func() tea.Msg {
		err := a.opts.Source.ToggleLike(context.Background(), op.ItemID, a.opts.Viewer.UserID, op.WasLiked)
		return LikeResultMsg{SessionID: sid, Op: op, Err: err}
	}
}

func (a App) followCmd(sid int, op feed.FollowOp) tea.Cmd {
	return func() tea.Msg {
		err := a.opts.Source.ToggleFollow(context.Background(), a.opts.Viewer.UserID, op.AuthorID, op.WasFollowing)
		return FollowResultMsg{SessionID: sid, Op: op, Err: err}
	}
}

func (a App) banCmd(sid int, op feed.BanOp) tea.Cmd {
	return func() tea.Msg {
		err := a.opts.Source.ToggleBan(context.Background(), a.opts.Viewer.UserID, op.AuthorID, op.WasBanned)
		return BanResultMsg{SessionID: sid, Op: op, Err: err}
	}
}

func (a App) commentCmd(sid int, op feed.CommentOp) tea.Cmd {
	return func() tea.Msg {
		c, err := a.opts.Source.AddComment(context.Background(), op.ItemID, a.opts.Viewer.UserID, op.Text)
		return CommentResultMsg{SessionID: sid, Op: op, Comment: c, Err: err}
	}
}

func (a App) editCmd(sid int, op feed.EditOp) tea.Cmd {
	return func() tea.Msg {
		it, err := a.opts.Source.UpdateItem(context.Background(), op.ItemID, op.Content, op.KeptMedia, op.NewMedia)
		return EditResultMsg{SessionID: sid, Op: op, Item: it, Err: err}
	}
}

func (a App) deleteCmd(sid int, op feed.DeleteOp) tea.Cmd {
	return func() tea.Msg {
		err := a.opts.Source.DeleteItem(context.Background(), op.ItemID)
		return DeleteResultMsg{SessionID: sid, Op: op, Err: err}
	}
}

func (a App) retweetCmd(sid int, op feed.RetweetOp) tea.Cmd {
	return func() tea.Msg {
		it, err := a.opts.Source.CreateRetweet(context.Background(), op.ItemID, op.Comment)
		return RetweetResultMsg{SessionID: sid, Op: op, Item: it, Err: err}
	}
}

func (a App) postCmd(content string, media []feed.MediaRef) tea.Cmd {
	return func() tea.Msg {
		it, err := a.opts.Source.CreateItem(context.Background(), a.opts.Viewer.UserID, content, media)
		return PostCreatedMsg{Item: it, Err: err}
	}
}

// Update ----------------------------------------------------------------------

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case CacheLoadedMsg:
		s := a.findSession(msg.SessionID)
		// Seed only while the network has not answered: an empty live
		// page exhausts the pager, and a snapshot seeded after that
		// would never be replaced.
		if s != nil && !s.liveResolved && s.store.Len() == 0 {
			s.store.Merge(msg.Items, feed.MergeAppend)
			s.seeded = true
		}
		return a, nil

	case PageLoadedMsg:
		return a.handlePageLoaded(msg)

	case RefreshMsg:
		s := a.findSession(msg.SessionID)
		if s == nil || msg.Err != nil || s.subject != msg.Subject {
			return a, nil
		}
		s.store.Merge(msg.Items, feed.MergePrepend)
		return a, nil

	case LikeResultMsg:
		if s := a.findSession(msg.SessionID); s != nil {
			if err := s.reducer.CompleteLike(msg.Op, msg.Err); err != nil {
				s.status = "like failed: " + err.Error()
			}
		}
		return a, nil

	case FollowResultMsg:
		if s := a.findSession(msg.SessionID); s != nil {
			if err := s.reducer.CompleteFollow(msg.Op, msg.Err); err != nil {
				s.status = "follow failed: " + err.Error()
			}
		}
		return a, nil

	case BanResultMsg:
		if s := a.findSession(msg.SessionID); s != nil {
			if err := s.reducer.CompleteBan(msg.Op, msg.Err); err != nil {
				s.status = "ban failed: " + err.Error()
			}
		}
		return a, nil

	case CommentResultMsg:
		if s := a.findSession(msg.SessionID); s != nil {
			if err := s.reducer.CompleteComment(msg.Op, msg.Comment, msg.Err); err != nil {
				s.status = "comment failed: " + err.Error()
			}
		}
		return a, nil

	case EditResultMsg:
		if s := a.findSession(msg.SessionID); s != nil {
			if err := s.reducer.CompleteEdit(msg.Op, msg.Item, msg.Err); err != nil {
				s.status = "edit failed: " + err.Error()
			}
		}
		return a, nil

	case DeleteResultMsg:
		s := a.findSession(msg.SessionID)
		if s == nil {
			return a, nil
		}
		if err := s.reducer.CompleteDelete(msg.Op, msg.Err); err != nil {
			s.status = "delete failed: " + err.Error()
			return a, nil
		}
		s.clampCursor()
		if a.opts.Cache != nil {
			id := msg.Op.ItemID
			return a, func() tea.Msg {
				_ = a.opts.Cache.Remove(id)
				return cacheSavedMsg{}
			}
		}
		return a, nil

	case RetweetResultMsg:
		s := a.findSession(msg.SessionID)
		if s == nil {
			return a, nil
		}
		if err := s.reducer.CompleteRetweet(msg.Op, msg.Item, msg.Err); err != nil {
			s.status = "retweet failed: " + err.Error()
			return a, nil
		}
		if a.opts.OnCreated != nil {
			a.opts.OnCreated(msg.Item.ID)
		}
		return a, nil

	case PostCreatedMsg:
		home := a.sessions[0]
		if msg.Err != nil {
			home.status = "post failed: " + msg.Err.Error()
			return a, nil
		}
		home.store.InsertAtHead(msg.Item)
		if a.opts.OnCreated != nil {
			a.opts.OnCreated(msg.Item.ID)
		}
		return a, nil

	case LiveEventMsg:
		a.applyLive(msg.Event)
		return a, a.waitForEvent()

	case cacheSavedMsg:
		return a, nil
	}

	return a, nil
}

func (a App) handlePageLoaded(msg PageLoadedMsg) (tea.Model, tea.Cmd) {
	s := a.findSession(msg.SessionID)
	if s == nil {
		return a, nil
	}
	ok := s.pager.Complete(msg.Req, len(msg.Items), msg.Err)
	if msg.Err != nil {
		s.status = "load failed: " + msg.Err.Error()
		return a, nil
	}
	s.liveResolved = true
	if !ok {
		return a, nil
	}

	// The first live page replaces an offline snapshot instead of merging
	// under it, or the stale cached versions would win.
	if s.seeded {
		s.store.Clear()
		s.seeded = false
		s.clampCursor()
	}
	s.store.Merge(msg.Items, feed.MergeAppend)
	s.status = ""

	var cmds []tea.Cmd
	if msg.Req.Page == 1 && s.subject.IsAll() {
		if a.opts.OnCreated != nil {
			a.opts.OnCreated(s.store.HeadID())
		}
		if cmd := a.saveCacheCmd(s.subject, s.store.Items()); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return a, tea.Batch(cmds...)
}

// applyLive routes one bus event into every mounted session it concerns.
func (a *App) applyLive(e bus.Event) {
	switch e := e.(type) {
	case bus.ItemCreated:
		for _, s := range a.sessions {
			if s.subject.IsAll() || s.subject.UserID() == e.Item.Author.ID {
				s.store.InsertAtHead(e.Item)
				if s.cursor > 0 {
					s.cursor++ // keep the same item under the cursor
				}
			}
		}
	case bus.ItemDeleted:
		for _, s := range a.sessions {
			s.store.Remove(e.ItemID)
			s.clampCursor()
		}
	case bus.SettingsChanged:
		a.opts.ShowCensored = e.ShowCensored
	}
}

// Key handling ----------------------------------------------------------------

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.compose.open {
		return a.handleComposeKey(msg)
	}
	if a.pendingDelete != 0 {
		return a.handleConfirmKey(msg)
	}

	s := a.top()
	s.status = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "j", "down":
		s.moveCursor(1)
		return a, a.maybeFetchNext(s)

	case "k", "up":
		s.moveCursor(-1)
		return a, nil

	case "g", "home":
		s.cursor = 0
		return a, nil

	case "G", "end":
		if n := s.store.Len(); n > 0 {
			s.cursor = n - 1
		}
		return a, a.maybeFetchNext(s)

	case "r":
		return a, a.refreshCmd(s.id, s.subject)

	case "l", "enter":
		return a.beginLike(s)

	case "f":
		return a.beginFollow(s)

	case "b":
		return a.beginBan(s)

	case "c":
		if it, ok := s.current(); ok {
			a.compose.show(composeComment, it.ID, "")
		}
		return a, nil

	case "n":
		a.compose.show(composePost, 0, "")
		return a, nil

	case "e":
		if it, ok := s.current(); ok {
			a.compose.show(composeEdit, it.ID, it.Content)
		}
		return a, nil

	case "t":
		if it, ok := s.current(); ok {
			target := it.ID
			if it.IsRepost() {
				target = it.Repost.Original.ID
			}
			a.compose.show(composeRetweet, target, "")
		}
		return a, nil

	case "d":
		if it, ok := s.current(); ok {
			a.pendingDelete = it.ID
		}
		return a, nil

	case "p":
		if it, ok := s.current(); ok {
			if err := s.reducer.TogglePin(it.ID); err != nil {
				s.status = "pin failed: " + err.Error()
			}
		}
		return a, nil

	case "u":
		return a.pushProfile(s)

	case "esc":
		if len(a.sessions) > 1 {
			a.sessions = a.sessions[:len(a.sessions)-1]
		}
		return a, nil
	}

	return a, nil
}

func (a App) maybeFetchNext(s *session) tea.Cmd {
	if !s.nearBottom() {
		return nil
	}
	req, ok := s.pager.Begin()
	if !ok {
		return nil
	}
	return a.fetchPageCmd(s.id, req)
}

func (a App) beginLike(s *session) (tea.Model, tea.Cmd) {
	it, ok := s.current()
	if !ok {
		return a, nil
	}
	op, err := s.reducer.BeginLike(it.ID)
	if err != nil {
		s.status = "like: " + err.Error()
		return a, nil
	}
	return a, a.likeCmd(s.id, op)
}

func (a App) beginFollow(s *session) (tea.Model, tea.Cmd) {
	it, ok := s.current()
	if !ok {
		return a, nil
	}
	op, err := s.reducer.BeginFollow(displayedAuthor(it).ID)
	if err != nil {
		s.status = "follow: " + err.Error()
		return a, nil
	}
	return a, a.followCmd(s.id, op)
}

func (a App) beginBan(s *session) (tea.Model, tea.Cmd) {
	it, ok := s.current()
	if !ok {
		return a, nil
	}
	op, err := s.reducer.BeginBan(displayedAuthor(it).ID)
	if err != nil {
		s.status = "ban: " + err.Error()
		return a, nil
	}
	return a, a.banCmd(s.id, op)
}

func (a App) pushProfile(s *session) (tea.Model, tea.Cmd) {
	it, ok := s.current()
	if !ok {
		return a, nil
	}
	author := displayedAuthor(it)
	ns := newSession(a.nextID, feed.ForUser(author.ID),
		"@"+author.Username, a.opts.Viewer, a.opts.PinPolicy)
	a.nextID++
	a.sessions = append(a.sessions, ns)

	req, _ := ns.pager.Begin()
	return a, a.fetchPageCmd(ns.id, req)
}

// displayedAuthor is the author the viewer sees: for a repost wrapper, the
// original's author, since that is whose content is on screen.
func displayedAuthor(it feed.Item) feed.Author {
	if it.IsRepost() {
		return it.Repost.Original.Author
	}
	return it.Author
}

func (a App) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.compose.hide()
		return a, nil
	case "enter":
		return a.submitCompose()
	}
	var cmd tea.Cmd
	a.compose.input, cmd = a.compose.input.Update(msg)
	return a, cmd
}

func (a App) submitCompose() (tea.Model, tea.Cmd) {
	s := a.top()
	text := a.compose.input.Value()
	purpose, target := a.compose.purpose, a.compose.target
	a.compose.hide()

	switch purpose {
	case composePost:
		body, media := splitMedia(text)
		if err := feed.ValidateContent(body); err != nil {
			s.status = "post: " + err.Error()
			return a, nil
		}
		if err := feed.ValidateMediaCount(len(media)); err != nil {
			s.status = "post: " + err.Error()
			return a, nil
		}
		return a, a.postCmd(body, media)

	case composeComment:
		op, err := s.reducer.BeginComment(target, text)
		if err != nil {
			s.status = "comment: " + err.Error()
			return a, nil
		}
		return a, a.commentCmd(s.id, op)

	case composeEdit:
		it, ok := s.store.Get(target)
		if !ok {
			s.status = "edit: item is gone"
			return a, nil
		}
		kept := make([]int, len(it.Media))
		for i := range kept {
			kept[i] = i
		}
		op, err := s.reducer.BeginEdit(target, text, kept, nil)
		if err != nil {
			s.status = "edit: " + err.Error()
			return a, nil
		}
		return a, a.editCmd(s.id, op)

	case composeRetweet:
		op, err := s.reducer.BeginRetweet(target, text)
		if err != nil {
			s.status = "retweet: " + err.Error()
			return a, nil
		}
		return a, a.retweetCmd(s.id, op)
	}
	return a, nil
}

func (a App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := a.top()
	id := a.pendingDelete
	a.pendingDelete = 0

	switch msg.String() {
	case "y", "Y":
		op, err := s.reducer.BeginDelete(id)
		if err != nil {
			s.status = "delete: " + err.Error()
			return a, nil
		}
		return a, a.deleteCmd(s.id, op)
	}
	return a, nil
}

// View ------------------------------------------------------------------------

func (a App) View() string {
	if !a.ready {
		return "starting..."
	}

	s := a.top()
	contentHeight := a.height - 2
	if a.compose.open {
		contentHeight -= 7
	}
	if contentHeight < 3 {
		contentHeight = 3
	}

	body := s.render(a.width, contentHeight, a.opts.ShowCensored)

	overlay := ""
	if a.compose.open {
		overlay = "\n" + a.compose.view(a.width)
	}

	return body + overlay + "\n" + a.statusLine(s)
}

func (a App) statusLine(s *session) string {
	if a.pendingDelete != 0 {
		return errorStyle.Render(
			fmt.Sprintf("delete item #%d? (y/n)", a.pendingDelete))
	}
	if s.status != "" {
		return errorStyle.Render(s.status)
	}

	state := ""
	switch s.pager.State() {
	case feed.StateLoading:
		state = a.spinner.View() + " loading"
	case feed.StateExhausted:
		state = "end of feed"
	}
	busy := ""
	if s.reducer.InFlight() {
		busy = a.spinner.View() + " syncing"
	}
	return statusStyle.Width(a.width).Render(
		fmt.Sprintf(" %s · %d items · %s %s", s.title, s.store.Len(), state, busy))
}
