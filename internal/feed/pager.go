package feed

// PagerState is the pagination state machine: idle → loading → idle on
// success, or → exhausted once the source returns an empty page.
type PagerState int

const (
	StateIdle PagerState = iota
	StateLoading
	StateExhausted
)

func (s PagerState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateExhausted:
		return "exhausted"
	default:
		return "idle"
	}
}

// PageRequest identifies one outstanding fetch. The subject is carried so a
// response arriving after the user navigated elsewhere can be recognized
// and dropped.
type PageRequest struct {
	Subject Subject
	Page    int
}

// Pager tracks the page cursor, the loading flag and exhaustion for one
// feed view. It never performs the fetch itself; the caller runs the
// remote call and reports back through Complete.
type Pager struct {
	subject Subject
	page    int
	state   PagerState
}

// NewPager creates a pager for the given subject, positioned before the
// first page.
func NewPager(subject Subject) *Pager {
	return &Pager{subject: subject}
}

// Subject returns the pager's scope.
func (p *Pager) Subject() Subject { return p.subject }

// State returns the current machine state.
func (p *Pager) State() PagerState { return p.state }

// Begin advances the cursor and enters loading. It returns false while a
// fetch is outstanding or the subject is exhausted; rapid scroll triggers
// collapse into the single in-flight request.
func (p *Pager) Begin() (PageRequest, bool) {
	if p.state != StateIdle {
		return PageRequest{}, false
	}
	p.page++
	p.state = StateLoading
	return PageRequest{Subject: p.subject, Page: p.page}, true
}

// Complete resolves an outstanding fetch. It returns true when the caller
// should merge the fetched items; a response for a superseded subject is
// dropped, and a fetch error returns the machine to idle (leaving
// exhaustion unset) so the next scroll trigger retries the same page.
func (p *Pager) Complete(req PageRequest, itemCount int, err error) bool {
	if req.Subject != p.subject {
		// Stale response from before a subject switch.
		return false
	}
	if p.state != StateLoading {
		return false
	}
	if err != nil {
		p.page--
		p.state = StateIdle
		return false
	}
	if itemCount == 0 {
		p.state = StateExhausted
		return false
	}
	p.state = StateIdle
	return true
}
