/*
network.go - Referral graph derived from sponsor pointers

PURPOSE:
  Answers upline/downline/level queries over the live user collection.
  Nothing here is cached or stored: every call reads the latest snapshot
  and follows sponsorId pointers, so the graph always reflects the most
  recent sponsor changes.

PARTICIPATION:
  Only ambassador roles participate. Admin and guest accounts never appear
  in upline or downline results; an upline walk passes through them without
  consuming a level.

CYCLE GUARD:
  The data model forbids sponsor cycles, but the walk tracks visited ids
  and stops with CycleError on a revisit rather than looping forever.

DOWNLINE:
  Downline is SINGLE-HOP: the immediate children whose sponsorId points at
  the user. The full subtree is intentionally not offered anywhere, so call
  sites cannot mix the two meanings.

SEE ALSO:
  - types.go: User.SponsorID
  - mlm/commission.go: Walks the upline to find beneficiaries
*/
package engine

import "context"

// =============================================================================
// GRAPH
// =============================================================================

// Graph derives referral relationships from the user collection on demand.
type Graph struct {
	users *Collection[User]
}

func NewGraph(users *Collection[User]) *Graph {
	return &Graph{users: users}
}

// Upline returns the ids of the user's ambassador ancestors, nearest first.
// The walk follows sponsorId until null, a dangling pointer, or a revisit.
// On a revisit the partial chain is returned alongside a CycleError.
func (g *Graph) Upline(ctx context.Context, userID int) ([]int, error) {
	byID, err := g.index(ctx)
	if err != nil {
		return nil, err
	}
	start, ok := byID[userID]
	if !ok {
		return nil, &NotFoundError{Collection: g.users.Name, ID: userID}
	}

	var chain []int
	visited := map[int]bool{userID: true}
	next := start.SponsorID
	for next != nil {
		id := *next
		if visited[id] {
			return chain, &CycleError{UserID: userID, Revisit: id, Chain: chain}
		}
		visited[id] = true

		ancestor, ok := byID[id]
		if !ok {
			break // dangling sponsor pointer ends the walk
		}
		if ancestor.Role.IsAmbassador() {
			chain = append(chain, id)
		}
		next = ancestor.SponsorID
	}
	return chain, nil
}

// Downline returns the ids of the user's immediate ambassador children.
func (g *Graph) Downline(ctx context.Context, userID int) ([]int, error) {
	if _, err := g.users.Get(ctx, userID); err != nil {
		return nil, err
	}
	children, err := g.users.Find(ctx, func(u *User) bool {
		return u.SponsorID != nil && *u.SponsorID == userID && u.Role.IsAmbassador()
	})
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(children))
	for i, c := range children {
		ids[i] = c.ID
	}
	return ids, nil
}

// Level returns the user's depth in the network: the length of their upline.
func (g *Graph) Level(ctx context.Context, userID int) (int, error) {
	chain, err := g.Upline(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

func (g *Graph) index(ctx context.Context) (map[int]User, error) {
	users, err := g.users.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
