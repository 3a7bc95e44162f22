package skeins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dekarrin/skein/internal/skg"
	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/serr"
	"github.com/dekarrin/skein/slp"
	"github.com/google/uuid"
)

// MaxExpand is the largest number of values ExpandRoot will return.
const MaxExpand = 1 << 20

// Kinds of Op.
const (
	OpConcat     = "concat"
	OpRepeat     = "repeat"
	OpExtract    = "extract"
	OpReverse    = "reverse"
	OpSubstitute = "substitute"
	OpBinarize   = "binarize"
)

var opKinds = []string{OpConcat, OpRepeat, OpExtract, OpReverse, OpSubstitute, OpBinarize}

// Op is a structural operation applied to a stored grammar. Operands in Of are
// labels, root names, or rule IDs in "#N" form. The result is stored as a new
// root named As.
//
// Substitute takes two operands: the rule to substitute into and the rule that
// replaces every occurrence of Value.
type Op struct {
	Kind  string
	Of    []string
	Times int
	Start uint64
	End   uint64
	Value string
	As    string
}

// Grammar is a stored grammar along with its decoded definition.
type Grammar struct {
	dao.Grammar
	Def skg.Definition
}

// CreateGrammar parses source as SKG text and stores the result as a new
// grammar owned by owner.
//
// If source is not a valid grammar or name is blank, the returned error will
// match serr.ErrBadArgument. Other problems with the DB match serr.ErrDB.
func (svc Service) CreateGrammar(ctx context.Context, owner uuid.UUID, name, source string) (Grammar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Grammar{}, serr.New("name cannot be blank", serr.ErrBadArgument)
	}

	def, err := skg.Parse([]byte(source))
	if err != nil {
		return Grammar{}, serr.New("grammar is not valid", err, serr.ErrBadArgument)
	}

	data, err := skg.MarshalBinary(def)
	if err != nil {
		return Grammar{}, serr.New("could not encode grammar", err)
	}

	created, err := svc.DB.Grammars().Create(ctx, dao.Grammar{
		Owner: owner,
		Name:  name,
		Data:  data,
	})
	if err != nil {
		return Grammar{}, serr.WrapDB("could not create grammar", err)
	}

	return Grammar{Grammar: created, Def: def}, nil
}

// GetAllGrammars returns every grammar owned by the given user. The returned
// grammars are not decoded.
func (svc Service) GetAllGrammars(ctx context.Context, owner uuid.UUID) ([]dao.Grammar, error) {
	all, err := svc.DB.Grammars().GetAllByOwner(ctx, owner)
	if err != nil {
		return nil, serr.WrapDB("", err)
	}
	return all, nil
}

// GetGrammar returns the grammar with the given ID, decoded. Only its owner or
// an admin may get it.
//
// If there is no such grammar the returned error will match serr.ErrNotFound.
// If user may not see it, it will match serr.ErrPermissions. If the ID is not
// valid, it will match serr.ErrBadArgument. Other problems with the DB match
// serr.ErrDB.
func (svc Service) GetGrammar(ctx context.Context, user dao.User, id string) (Grammar, error) {
	uuidID, err := parseID(id)
	if err != nil {
		return Grammar{}, err
	}

	stored, err := svc.DB.Grammars().GetByID(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return Grammar{}, serr.ErrNotFound
		}
		return Grammar{}, serr.WrapDB("could not get grammar", err)
	}

	if stored.Owner != user.ID && user.Role != dao.Admin {
		return Grammar{}, serr.ErrPermissions
	}

	// decoding rebuilds every rule, which rejects stored data that is
	// corrupted or refers forward
	def, err := skg.UnmarshalBinary(stored.Data)
	if err != nil {
		return Grammar{}, serr.New("stored grammar is corrupt", err)
	}

	return Grammar{Grammar: stored, Def: def}, nil
}

// DeleteGrammar deletes the grammar with the given ID. Only its owner or an
// admin may delete it. Errors are the same as for GetGrammar.
func (svc Service) DeleteGrammar(ctx context.Context, user dao.User, id string) (dao.Grammar, error) {
	g, err := svc.GetGrammar(ctx, user, id)
	if err != nil {
		return dao.Grammar{}, err
	}

	deleted, err := svc.DB.Grammars().Delete(ctx, g.ID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.Grammar{}, serr.ErrNotFound
		}
		return dao.Grammar{}, serr.WrapDB("could not delete grammar", err)
	}

	return deleted, nil
}

// RootLength returns the length of the sequence derived from the named root.
// If there is no such root, the returned error will match serr.ErrNotFound.
func (svc Service) RootLength(ctx context.Context, user dao.User, id, root string) (uint64, error) {
	g, rule, err := svc.getRoot(ctx, user, id, root)
	if err != nil {
		return 0, err
	}

	n, err := g.Def.Grammar.Length(rule)
	if err != nil {
		return 0, grammarError(err)
	}
	return n, nil
}

// RootAt returns the value at the given offset in the sequence derived from
// the named root. If the offset is past the end, the returned error will match
// serr.ErrGrammar.
func (svc Service) RootAt(ctx context.Context, user dao.User, id, root string, offset uint64) (string, error) {
	g, rule, err := svc.getRoot(ctx, user, id, root)
	if err != nil {
		return "", err
	}

	v, err := g.Def.Grammar.At(rule, offset)
	if err != nil {
		return "", grammarError(err)
	}
	return v, nil
}

// RootCount returns how many times value occurs in the sequence derived from
// the named root.
func (svc Service) RootCount(ctx context.Context, user dao.User, id, root, value string) (uint64, error) {
	g, rule, err := svc.getRoot(ctx, user, id, root)
	if err != nil {
		return 0, err
	}

	n, err := g.Def.Grammar.Count(rule, value)
	if err != nil {
		return 0, grammarError(err)
	}
	return n, nil
}

// ExpandRoot returns the sequence derived from the named root. If it has more
// than max values, the returned error will match serr.ErrGrammar. max must be
// between 1 and MaxExpand.
func (svc Service) ExpandRoot(ctx context.Context, user dao.User, id, root string, max uint64) ([]string, error) {
	if max < 1 || max > MaxExpand {
		return nil, serr.New(fmt.Sprintf("max must be between 1 and %d", MaxExpand), serr.ErrBadArgument)
	}

	g, rule, err := svc.getRoot(ctx, user, id, root)
	if err != nil {
		return nil, err
	}

	vals, err := g.Def.Grammar.ExpandLimit(rule, max)
	if err != nil {
		return nil, grammarError(err)
	}
	return vals, nil
}

// Equals returns whether the sequences derived from the two targets are the
// same. Targets are labels, root names, or "#N" rule IDs.
func (svc Service) Equals(ctx context.Context, user dao.User, id, a, b string) (bool, error) {
	g, err := svc.GetGrammar(ctx, user, id)
	if err != nil {
		return false, err
	}

	ids, err := resolveAll(g.Def, a, b)
	if err != nil {
		return false, err
	}

	eq, err := g.Def.Grammar.Equal(ids[0], ids[1])
	if err != nil {
		return false, grammarError(err)
	}
	return eq, nil
}

// ApplyOp performs op on the grammar with the given ID, names the result with
// a root, and saves the grammar. Returns the new root.
//
// If op is malformed, the returned error will match serr.ErrBadArgument. If an
// operand does not exist it will match serr.ErrNotFound, and if the grammar
// engine rejects the operation it will match serr.ErrGrammar. Otherwise errors
// are the same as for GetGrammar.
func (svc Service) ApplyOp(ctx context.Context, user dao.User, id string, op Op) (slp.Root, error) {
	if strings.TrimSpace(op.As) == "" {
		return slp.Root{}, serr.New("result root name cannot be blank", serr.ErrBadArgument)
	}

	switch op.Kind {
	case OpConcat:
		if len(op.Of) < 1 {
			return slp.Root{}, serr.New("concat needs at least one operand", serr.ErrBadArgument)
		}
	case OpRepeat, OpExtract, OpReverse, OpBinarize:
		if len(op.Of) != 1 {
			return slp.Root{}, serr.New(op.Kind+" needs exactly one operand", serr.ErrBadArgument)
		}
	case OpSubstitute:
		if len(op.Of) != 2 {
			return slp.Root{}, serr.New("substitute needs exactly two operands", serr.ErrBadArgument)
		}
	default:
		return slp.Root{}, serr.New(fmt.Sprintf("op must be one of %q", opKinds), serr.ErrBadArgument)
	}

	unlock := svc.lockGrammars()
	defer unlock()

	g, err := svc.GetGrammar(ctx, user, id)
	if err != nil {
		return slp.Root{}, err
	}

	operands, err := resolveAll(g.Def, op.Of...)
	if err != nil {
		return slp.Root{}, err
	}

	var result slp.RuleID
	switch op.Kind {
	case OpConcat:
		result, err = g.Def.Grammar.ConcatAll(operands...)
	case OpRepeat:
		result, err = g.Def.Grammar.Repeat(operands[0], op.Times)
	case OpExtract:
		result, err = g.Def.Grammar.Extract(operands[0], op.Start, op.End)
	case OpReverse:
		result, err = g.Def.Grammar.Reverse(operands[0])
	case OpSubstitute:
		result, err = g.Def.Grammar.Substitute(operands[0], op.Value, operands[1])
	case OpBinarize:
		result, err = g.Def.Grammar.Binarize(operands[0])
	}
	if err != nil {
		return slp.Root{}, grammarError(err)
	}

	root, err := g.Def.Grammar.AddRoot(result, op.As)
	if err != nil {
		return slp.Root{}, grammarError(err)
	}

	data, err := skg.MarshalBinary(g.Def)
	if err != nil {
		return slp.Root{}, serr.New("could not encode grammar", err)
	}

	g.Data = data
	if _, err := svc.DB.Grammars().Update(ctx, g.ID, g.Grammar); err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return slp.Root{}, serr.ErrNotFound
		}
		return slp.Root{}, serr.WrapDB("could not save grammar", err)
	}

	return root, nil
}

func (svc Service) getRoot(ctx context.Context, user dao.User, id, root string) (Grammar, slp.RuleID, error) {
	g, err := svc.GetGrammar(ctx, user, id)
	if err != nil {
		return Grammar{}, 0, err
	}

	r, ok := g.Def.Grammar.Root(root)
	if !ok {
		return Grammar{}, 0, serr.New(fmt.Sprintf("no root named %q", root), serr.ErrNotFound)
	}
	return g, r.Rule, nil
}

func resolveAll(def skg.Definition, targets ...string) ([]slp.RuleID, error) {
	ids := make([]slp.RuleID, len(targets))
	for i, t := range targets {
		id, err := def.Resolve(t)
		if err != nil {
			if errors.Is(err, skg.ErrUnknownTarget) || errors.Is(err, slp.ErrInvalidReference) {
				return nil, serr.New(fmt.Sprintf("no rule or root %q", t), err, serr.ErrNotFound)
			}
			return nil, serr.New(fmt.Sprintf("%q is not valid", t), err, serr.ErrBadArgument)
		}
		ids[i] = id
	}
	return ids, nil
}

// grammarError converts an error from package slp to one that the API can
// report.
func grammarError(err error) error {
	switch {
	case errors.Is(err, slp.ErrInvalidReference):
		return serr.New("rule does not exist", err, serr.ErrNotFound)
	case errors.Is(err, slp.ErrOutOfRange):
		return serr.New("out of range", err, serr.ErrGrammar)
	case errors.Is(err, slp.ErrTooLong):
		return serr.New("result is too long", err, serr.ErrGrammar)
	case errors.Is(err, slp.ErrInvalidArgument):
		return serr.New("invalid argument", err, serr.ErrGrammar)
	default:
		return serr.New("grammar operation failed", err, serr.ErrGrammar)
	}
}
