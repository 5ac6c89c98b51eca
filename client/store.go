package client

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Sort orders supported by the store.
type Sort string

const (
	SortNewest  Sort = "newest"
	SortUpvotes Sort = "upvotes"
)

// ErrToggleInFlight is returned when an upvote toggle is requested for a
// comment whose previous toggle has not settled yet.
var ErrToggleInFlight = errors.New("upvote toggle already in flight for this comment")

// node is the store's internal arena entry. Children are kept as an ordered
// id list so sibling order survives updates.
type node struct {
	comment  Comment
	parent   string
	children []string
}

// Store maintains an optimistic local copy of one post's comment tree.
// Mutating calls apply the change locally first, then reconcile with the
// server response or roll back on failure. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	api      API
	postID   string
	sort     Sort
	nodes    map[string]*node
	roots    []string
	inflight map[string]bool
}

// NewStore creates a store for one post's comment tree.
func NewStore(api API, postID string) *Store {
	return &Store{
		api:      api,
		postID:   postID,
		sort:     SortNewest,
		nodes:    map[string]*node{},
		inflight: map[string]bool{},
	}
}

// Refresh replaces the local tree with the server's current state.
func (s *Store) Refresh(ctx context.Context) error {
	comments, err := s.api.FetchComments(ctx, s.postID, string(s.sort))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = map[string]*node{}
	s.roots = s.roots[:0]
	for i := range comments {
		s.load(&comments[i], "")
	}
	return nil
}

// load flattens one fetched subtree into the arena.
func (s *Store) load(c *Comment, parent string) {
	n := &node{comment: *c, parent: parent}
	n.comment.Replies = nil
	s.nodes[c.ID] = n
	if parent == "" {
		s.roots = append(s.roots, c.ID)
	} else {
		p := s.nodes[parent]
		p.children = append(p.children, c.ID)
	}
	for i := range c.Replies {
		s.load(&c.Replies[i], c.ID)
	}
}

// Forest returns the current local tree, rebuilt from the arena. The result
// is a deep copy; callers may hold it across store mutations.
func (s *Store) Forest() []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	forest := make([]Comment, 0, len(s.roots))
	for _, id := range s.roots {
		forest = append(forest, s.subtree(id))
	}
	return forest
}

func (s *Store) subtree(id string) Comment {
	n := s.nodes[id]
	c := n.comment
	c.Replies = make([]Comment, 0, len(n.children))
	for _, child := range n.children {
		c.Replies = append(c.Replies, s.subtree(child))
	}
	return c
}

// AddComment optimistically prepends a provisional top-level comment, then
// reconciles it with the server-assigned comment or removes it on failure.
func (s *Store) AddComment(ctx context.Context, text string) (*Comment, error) {
	provisionalID := s.insertProvisional(text, "")

	created, err := s.api.CreateComment(ctx, text, s.postID)
	if err != nil {
		s.removeProvisional(provisionalID)
		return nil, err
	}

	s.confirmProvisional(provisionalID, created)
	return created, nil
}

// AddReply optimistically prepends a provisional reply under parentID, then
// reconciles or rolls back exactly like AddComment.
func (s *Store) AddReply(ctx context.Context, parentID, text string) (*Comment, error) {
	s.mu.Lock()
	if _, ok := s.nodes[parentID]; !ok {
		s.mu.Unlock()
		return nil, errors.New("unknown parent comment: " + parentID)
	}
	s.mu.Unlock()

	provisionalID := s.insertProvisional(text, parentID)

	created, err := s.api.CreateReply(ctx, parentID, text)
	if err != nil {
		s.removeProvisional(provisionalID)
		return nil, err
	}

	s.confirmProvisional(provisionalID, created)
	return created, nil
}

// ToggleUpvote optimistically flips the local upvote state, then overwrites
// it with the server's authoritative count or restores the exact previous
// state on failure. A second toggle on the same comment while one is pending
// fails with ErrToggleInFlight.
func (s *Store) ToggleUpvote(ctx context.Context, commentID string) (*UpvoteState, error) {
	s.mu.Lock()
	n, ok := s.nodes[commentID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.New("unknown comment: " + commentID)
	}
	if s.inflight[commentID] {
		s.mu.Unlock()
		return nil, ErrToggleInFlight
	}
	s.inflight[commentID] = true

	prevUpvotes := n.comment.Upvotes
	prevState := n.comment.IsUpvoted
	if prevState {
		n.comment.Upvotes--
	} else {
		n.comment.Upvotes++
	}
	n.comment.IsUpvoted = !prevState
	s.mu.Unlock()

	state, err := s.api.ToggleUpvote(ctx, commentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, commentID)

	// The node may have been dropped by a concurrent Refresh.
	n, ok = s.nodes[commentID]
	if !ok {
		return state, err
	}
	if err != nil {
		n.comment.Upvotes = prevUpvotes
		n.comment.IsUpvoted = prevState
		return nil, err
	}
	n.comment.Upvotes = state.Upvotes
	n.comment.IsUpvoted = state.IsUpvoted
	return state, nil
}

// SetSort changes the top-level ordering and re-sorts the local roots.
func (s *Store) SetSort(sort Sort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = sort
	s.sortRoots()
}

func (s *Store) insertProvisional(text, parent string) string {
	id := "tmp-" + uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	n := &node{
		comment: Comment{
			ID:          id,
			Text:        text,
			ParentID:    parent,
			PostID:      s.postID,
			Replies:     []Comment{},
			Provisional: true,
		},
		parent: parent,
	}
	s.nodes[id] = n
	if parent == "" {
		s.roots = append([]string{id}, s.roots...)
	} else {
		p := s.nodes[parent]
		p.children = append([]string{id}, p.children...)
	}
	return id
}

// confirmProvisional swaps the provisional node's identity for the
// server-assigned comment, keeping its position.
func (s *Store) confirmProvisional(provisionalID string, created *Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[provisionalID]
	if !ok {
		return
	}
	delete(s.nodes, provisionalID)

	n.comment = *created
	n.comment.Replies = nil
	n.comment.Provisional = false
	s.nodes[created.ID] = n

	s.replaceID(provisionalID, created.ID, n.parent)
	for _, child := range n.children {
		s.nodes[child].parent = created.ID
	}
}

func (s *Store) removeProvisional(provisionalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[provisionalID]
	if !ok {
		return
	}
	delete(s.nodes, provisionalID)

	// A failed provisional comment can have no confirmed children; reattach
	// is unnecessary, just drop any provisional descendants with it.
	for _, child := range n.children {
		s.dropSubtree(child)
	}

	if n.parent == "" {
		s.roots = removeID(s.roots, provisionalID)
	} else if p, ok := s.nodes[n.parent]; ok {
		p.children = removeID(p.children, provisionalID)
	}
}

func (s *Store) dropSubtree(id string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	delete(s.nodes, id)
	for _, child := range n.children {
		s.dropSubtree(child)
	}
}

func (s *Store) replaceID(oldID, newID, parent string) {
	if parent == "" {
		for i, id := range s.roots {
			if id == oldID {
				s.roots[i] = newID
				return
			}
		}
		return
	}
	if p, ok := s.nodes[parent]; ok {
		for i, id := range p.children {
			if id == oldID {
				p.children[i] = newID
				return
			}
		}
	}
}

// sortRoots orders the top level only; reply order within a thread is always
// newest first as fetched.
func (s *Store) sortRoots() {
	less := func(a, b *Comment) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}
	if s.sort == SortUpvotes {
		less = func(a, b *Comment) bool {
			return a.Upvotes > b.Upvotes
		}
	}
	sort.SliceStable(s.roots, func(i, j int) bool {
		return less(&s.nodes[s.roots[i]].comment, &s.nodes[s.roots[j]].comment)
	})
}

func removeID(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
