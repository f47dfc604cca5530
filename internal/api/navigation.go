package api

// queryNavigation adapts one request's invite link parameters to the
// resolver's navigation interface. "Clearing" is recorded here and
// relayed to the client in the response, since the server cannot rewrite
// the client's location itself.
type queryNavigation struct {
	listID  string
	email   string
	present bool
	cleared bool
}

func newQueryNavigation(listID, email string) *queryNavigation {
	return &queryNavigation{
		listID:  listID,
		email:   email,
		present: listID != "" && email != "",
	}
}

func (n *queryNavigation) InviteParams() (string, string, bool) {
	if !n.present || n.cleared {
		return "", "", false
	}
	return n.listID, n.email, true
}

func (n *queryNavigation) ClearInviteParams() {
	n.cleared = true
}
