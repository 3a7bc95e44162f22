package api

import (
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/skeins"
)

// note that these are *not* the DAO models; those are distinct and closer to
// the DB format they are in. Rather these are the models that are received from
// and sent to the client.

type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type InfoModel struct {
	Version struct {
		Server string `json:"server"`
		Skein  string `json:"skein"`
	} `json:"version"`
}

type UserModel struct {
	URI            string `json:"uri"`
	ID             string `json:"id,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	Email          string `json:"email,omitempty"`
	Role           string `json:"role,omitempty"`
	Created        string `json:"created,omitempty"`
	Modified       string `json:"modified,omitempty"`
	LastLogoutTime string `json:"last_logout,omitempty"`
	LastLoginTime  string `json:"last_login,omitempty"`
}

// GrammarCreateRequest uploads a grammar. Source is the text of an SKG data
// file.
type GrammarCreateRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type RootModel struct {
	Name   string `json:"name"`
	Rule   string `json:"rule"`
	Length uint64 `json:"length"`
}

type GrammarModel struct {
	URI      string      `json:"uri"`
	ID       string      `json:"id"`
	Owner    string      `json:"owner"`
	Name     string      `json:"name"`
	Created  string      `json:"created"`
	Modified string      `json:"modified"`
	Rules    int         `json:"rules,omitempty"`
	Symbols  int         `json:"symbols,omitempty"`
	MaxDepth int         `json:"max_depth,omitempty"`
	Labels   []string    `json:"labels,omitempty"`
	Roots    []RootModel `json:"roots,omitempty"`
}

type LengthResponse struct {
	Root   string `json:"root"`
	Length uint64 `json:"length"`
}

type AtResponse struct {
	Root   string `json:"root"`
	Offset uint64 `json:"offset"`
	Value  string `json:"value"`
}

type CountResponse struct {
	Root  string `json:"root"`
	Value string `json:"value"`
	Count uint64 `json:"count"`
}

type ExpandResponse struct {
	Root   string   `json:"root"`
	Values []string `json:"values"`
}

// OpRequest applies a structural operation. Op is one of "concat", "repeat",
// "extract", "reverse", "substitute", or "binarize"; Times is used by repeat,
// Start and End by extract, and Value by substitute.
type OpRequest struct {
	Op    string   `json:"op"`
	Of    []string `json:"of"`
	Times int      `json:"times,omitempty"`
	Start uint64   `json:"start,omitempty"`
	End   uint64   `json:"end,omitempty"`
	Value string   `json:"value,omitempty"`
	As    string   `json:"as"`
}

type EqualsRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

type EqualsResponse struct {
	A     string `json:"a"`
	B     string `json:"b"`
	Equal bool   `json:"equal"`
}

func userModel(u dao.User) UserModel {
	m := UserModel{
		URI:            PathPrefix + "/users/" + u.ID.String(),
		ID:             u.ID.String(),
		Username:       u.Username,
		Role:           u.Role.String(),
		Created:        u.Created.Format(time.RFC3339),
		Modified:       u.Modified.Format(time.RFC3339),
		LastLogoutTime: u.LastLogoutTime.Format(time.RFC3339),
		LastLoginTime:  u.LastLoginTime.Format(time.RFC3339),
	}
	if u.Email != nil {
		m.Email = u.Email.Address
	}
	return m
}

func grammarModel(g dao.Grammar) GrammarModel {
	return GrammarModel{
		URI:      PathPrefix + "/grammars/" + g.ID.String(),
		ID:       g.ID.String(),
		Owner:    g.Owner.String(),
		Name:     g.Name,
		Created:  g.Created.Format(time.RFC3339),
		Modified: g.Modified.Format(time.RFC3339),
	}
}

// detailedGrammarModel includes the size, labels, and roots of the decoded
// grammar.
func detailedGrammarModel(g skeins.Grammar) GrammarModel {
	m := grammarModel(g.Grammar)

	st := g.Def.Grammar.Stats()
	m.Rules = st.Rules
	m.Symbols = st.Symbols
	m.MaxDepth = st.MaxDepth
	m.Labels = g.Def.SortedLabels()

	for _, r := range g.Def.Grammar.Roots() {
		n, _ := g.Def.Grammar.Length(r.Rule)
		m.Roots = append(m.Roots, RootModel{Name: r.Name, Rule: r.Rule.String(), Length: n})
	}
	return m
}
