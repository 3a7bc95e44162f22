package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dekarrin/skein/server/result"
	"github.com/dekarrin/skein/server/serr"
	"github.com/dekarrin/skein/server/skeins"
	"github.com/dekarrin/skein/slp"
	"github.com/go-chi/chi/v5"
)

// DefaultExpandMax is the number of values an expand request may return when
// it does not give a max.
const DefaultExpandMax = 1000

func parseUint(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// HTTPGetAllGrammars returns a HandlerFunc that lists the grammars owned by
// the logged-in user.
func (api API) HTTPGetAllGrammars() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetAllGrammars)
}

func (api API) epGetAllGrammars(req *http.Request) result.Result {
	user := requireUser(req)

	all, err := api.Backend.GetAllGrammars(req.Context(), user.ID)
	if err != nil {
		return serviceError(err, "get all grammars")
	}

	resp := make([]GrammarModel, len(all))
	for i := range all {
		resp[i] = grammarModel(all[i])
	}

	return result.OK(resp, "user '%s' got all %d of their grammars", user.Username, len(resp))
}

// HTTPCreateGrammar returns a HandlerFunc that uploads a new grammar owned by
// the logged-in user.
func (api API) HTTPCreateGrammar() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateGrammar)
}

func (api API) epCreateGrammar(req *http.Request) result.Result {
	user := requireUser(req)

	var createReq GrammarCreateRequest
	if err := parseJSON(req, &createReq); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if createReq.Source == "" {
		return result.BadRequest("source: property is empty or missing from request", "empty source")
	}

	g, err := api.Backend.CreateGrammar(req.Context(), user.ID, createReq.Name, createReq.Source)
	if err != nil {
		return serviceError(err, "create grammar")
	}

	resp := detailedGrammarModel(g)
	return result.Created(resp, "user '%s' created grammar %s (%d rules)", user.Username, resp.ID, resp.Rules)
}

// HTTPGetGrammar returns a HandlerFunc that gets a grammar along with its
// labels and roots.
func (api API) HTTPGetGrammar() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetGrammar)
}

func (api API) epGetGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	g, err := api.Backend.GetGrammar(req.Context(), user, id.String())
	if err != nil {
		return serviceError(err, "get grammar")
	}

	return result.OK(detailedGrammarModel(g), "user '%s' got grammar %s", user.Username, id)
}

// HTTPDeleteGrammar returns a HandlerFunc that deletes a grammar.
func (api API) HTTPDeleteGrammar() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epDeleteGrammar)
}

func (api API) epDeleteGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	_, err := api.Backend.DeleteGrammar(req.Context(), user, id.String())
	if err != nil {
		return serviceError(err, "delete grammar")
	}

	return result.NoContent("user '%s' deleted grammar %s", user.Username, id)
}

// HTTPGetRootLength returns a HandlerFunc that gets the length of the sequence
// a root derives.
func (api API) HTTPGetRootLength() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetRootLength)
}

func (api API) epGetRootLength(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)
	root := chi.URLParam(req, "name")

	n, err := api.Backend.RootLength(req.Context(), user, id.String(), root)
	if err != nil {
		return serviceError(err, "get root length")
	}

	return result.OK(LengthResponse{Root: root, Length: n}, "user '%s' got length of %s/%s", user.Username, id, root)
}

// HTTPGetRootAt returns a HandlerFunc that gets a single value of the sequence
// a root derives.
func (api API) HTTPGetRootAt() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetRootAt)
}

func (api API) epGetRootAt(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)
	root := chi.URLParam(req, "name")

	signed, err := getURLParam(req, "offset", parseInt)
	if err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if signed < 0 {
		err := serr.New(fmt.Sprintf("offset %d is before the start", signed), serr.ErrGrammar, slp.ErrOutOfRange)
		return serviceError(err, "get value at offset")
	}
	offset := uint64(signed)

	v, err := api.Backend.RootAt(req.Context(), user, id.String(), root, offset)
	if err != nil {
		return serviceError(err, "get value at offset")
	}

	resp := AtResponse{Root: root, Offset: offset, Value: v}
	return result.OK(resp, "user '%s' got %s/%s at %d", user.Username, id, root, offset)
}

// HTTPGetRootCount returns a HandlerFunc that counts how many times the value
// query parameter occurs in the sequence a root derives.
func (api API) HTTPGetRootCount() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetRootCount)
}

func (api API) epGetRootCount(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)
	root := chi.URLParam(req, "name")

	q := req.URL.Query()
	if !q.Has("value") {
		return result.BadRequest("value: query parameter is missing", "no value to count")
	}
	value := q.Get("value")

	n, err := api.Backend.RootCount(req.Context(), user, id.String(), root, value)
	if err != nil {
		return serviceError(err, "count value")
	}

	resp := CountResponse{Root: root, Value: value, Count: n}
	return result.OK(resp, "user '%s' counted %q in %s/%s", user.Username, value, id, root)
}

// HTTPGetRootExpansion returns a HandlerFunc that gets the whole sequence a
// root derives. The max query parameter limits how long it may be.
func (api API) HTTPGetRootExpansion() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetRootExpansion)
}

func (api API) epGetRootExpansion(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)
	root := chi.URLParam(req, "name")

	max := uint64(DefaultExpandMax)
	if maxStr := req.URL.Query().Get("max"); maxStr != "" {
		var err error
		max, err = parseUint(maxStr)
		if err != nil {
			return result.BadRequest("max: must be a non-negative integer", "max %q: %s", maxStr, err.Error())
		}
	}

	vals, err := api.Backend.ExpandRoot(req.Context(), user, id.String(), root, max)
	if err != nil {
		return serviceError(err, "expand root")
	}

	return result.OK(ExpandResponse{Root: root, Values: vals}, "user '%s' expanded %s/%s", user.Username, id, root)
}

// HTTPCreateOp returns a HandlerFunc that applies a concat, repeat, or extract
// to a grammar and stores the result as a new root.
func (api API) HTTPCreateOp() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateOp)
}

func (api API) epCreateOp(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	var opReq OpRequest
	if err := parseJSON(req, &opReq); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}

	op := skeins.Op{
		Kind:  opReq.Op,
		Of:    opReq.Of,
		Times: opReq.Times,
		Start: opReq.Start,
		End:   opReq.End,
		Value: opReq.Value,
		As:    opReq.As,
	}
	root, err := api.Backend.ApplyOp(req.Context(), user, id.String(), op)
	if err != nil {
		return serviceError(err, "apply "+opReq.Op)
	}

	g, err := api.Backend.GetGrammar(req.Context(), user, id.String())
	if err != nil {
		return serviceError(err, "get grammar after "+opReq.Op)
	}
	n, _ := g.Def.Grammar.Length(root.Rule)

	resp := RootModel{Name: root.Name, Rule: root.Rule.String(), Length: n}
	return result.Created(resp, "user '%s' applied %s to %s as root %q", user.Username, opReq.Op, id, root.Name)
}

// HTTPCreateEquals returns a HandlerFunc that checks whether two rules or
// roots of a grammar derive the same sequence.
func (api API) HTTPCreateEquals() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateEquals)
}

func (api API) epCreateEquals(req *http.Request) result.Result {
	id := requireIDParam(req)
	user := requireUser(req)

	var eqReq EqualsRequest
	if err := parseJSON(req, &eqReq); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if eqReq.A == "" || eqReq.B == "" {
		return result.BadRequest("a, b: both properties are required", "missing operand")
	}

	eq, err := api.Backend.Equals(req.Context(), user, id.String(), eqReq.A, eqReq.B)
	if err != nil {
		return serviceError(err, "check equality")
	}

	resp := EqualsResponse{A: eqReq.A, B: eqReq.B, Equal: eq}
	return result.OK(resp, "user '%s' compared %q and %q in %s", user.Username, eqReq.A, eqReq.B, id)
}
