package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/skein/server/api"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

const testGrammar = `format = "SKEIN"
type = "DATA"

[[rule]]
label = "ab"
symbols = ["'a", "'b"]

[[rule]]
label = "abab"
repeat = { of = "ab", times = 2 }

[[root]]
name = "main"
rule = "abab"
`

type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	token  string
	userID string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()

	ss, err := New(Config{
		UnauthDelayMillis: -1,
		PasswordCost:      bcrypt.MinCost,
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	if _, err := ss.CreateAdmin(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	srv := httptest.NewServer(ss.Handler())
	t.Cleanup(func() {
		srv.Close()
		ss.Close()
	})

	return &testClient{t: t, srv: srv}
}

func (tc *testClient) do(method, path string, body interface{}, into interface{}) int {
	tc.t.Helper()

	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			tc.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, tc.srv.URL+api.PathPrefix+path, rdr)
	if err != nil {
		tc.t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.token)
	}

	resp, err := tc.srv.Client().Do(req)
	if err != nil {
		tc.t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if into != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			tc.t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func (tc *testClient) login(username, password string) int {
	var resp api.LoginResponse
	status := tc.do("POST", "/login", api.LoginRequest{Username: username, Password: password}, &resp)
	tc.token = resp.Token
	tc.userID = resp.UserID
	return status
}

func Test_Server_Login(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)

	assert.Equal(http.StatusUnauthorized, c.login("admin", "wrong"))
	assert.Equal(http.StatusCreated, c.login("admin", "secret"))
	assert.NotEmpty(c.token)

	var info api.InfoModel
	assert.Equal(http.StatusOK, c.do("GET", "/info", nil, &info))
	assert.NotEmpty(info.Version.Skein)

	var refreshed api.LoginResponse
	assert.Equal(http.StatusCreated, c.do("POST", "/tokens", nil, &refreshed))
	assert.Equal(c.userID, refreshed.UserID)

	// logging out invalidates the token
	assert.Equal(http.StatusNoContent, c.do("DELETE", "/login/"+c.userID, nil, nil))
	assert.Equal(http.StatusUnauthorized, c.do("GET", "/grammars", nil, nil))
}

func Test_Server_Users(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)
	c.login("admin", "secret")

	var created api.UserModel
	status := c.do("POST", "/users", api.UserModel{Username: "weaver", Password: "pw", Role: "normal"}, &created)
	if !assert.Equal(http.StatusCreated, status) {
		return
	}
	assert.Equal("normal", created.Role)

	assert.Equal(http.StatusConflict, c.do("POST", "/users", api.UserModel{Username: "weaver", Password: "pw"}, nil))

	var all []api.UserModel
	assert.Equal(http.StatusOK, c.do("GET", "/users", nil, &all))
	assert.Len(all, 2)

	// a normal user may not list users or see others
	other := &testClient{t: t, srv: c.srv}
	assert.Equal(http.StatusCreated, other.login("weaver", "pw"))
	assert.Equal(http.StatusForbidden, other.do("GET", "/users", nil, nil))
	assert.Equal(http.StatusForbidden, other.do("GET", "/users/"+c.userID, nil, nil))
	assert.Equal(http.StatusOK, other.do("GET", "/users/"+other.userID, nil, nil))

	assert.Equal(http.StatusNoContent, c.do("DELETE", "/users/"+created.ID, nil, nil))
	assert.Equal(http.StatusNotFound, c.do("GET", "/users/"+created.ID, nil, nil))
}

func Test_Server_Grammars(t *testing.T) {
	assert := assert.New(t)
	c := newTestClient(t)
	c.login("admin", "secret")

	var g api.GrammarModel
	status := c.do("POST", "/grammars", api.GrammarCreateRequest{Name: "test", Source: testGrammar}, &g)
	if !assert.Equal(http.StatusCreated, status) {
		return
	}
	assert.Equal([]string{"ab", "abab"}, g.Labels)
	if assert.Len(g.Roots, 1) {
		assert.Equal("main", g.Roots[0].Name)
		assert.Equal(uint64(4), g.Roots[0].Length)
	}

	base := "/grammars/" + g.ID

	var list []api.GrammarModel
	assert.Equal(http.StatusOK, c.do("GET", "/grammars", nil, &list))
	assert.Len(list, 1)

	var length api.LengthResponse
	assert.Equal(http.StatusOK, c.do("GET", base+"/roots/main/length", nil, &length))
	assert.Equal(uint64(4), length.Length)

	var at api.AtResponse
	assert.Equal(http.StatusOK, c.do("GET", base+"/roots/main/at/3", nil, &at))
	assert.Equal("b", at.Value)
	assert.Equal(http.StatusUnprocessableEntity, c.do("GET", base+"/roots/main/at/4", nil, nil))
	assert.Equal(http.StatusUnprocessableEntity, c.do("GET", base+"/roots/main/at/-1", nil, nil))
	assert.Equal(http.StatusNotFound, c.do("GET", base+"/roots/nope/at/0", nil, nil))

	var exp api.ExpandResponse
	assert.Equal(http.StatusOK, c.do("GET", base+"/roots/main/expand", nil, &exp))
	assert.Equal([]string{"a", "b", "a", "b"}, exp.Values)
	assert.Equal(http.StatusUnprocessableEntity, c.do("GET", base+"/roots/main/expand?max=3", nil, nil))
	assert.Equal(http.StatusBadRequest, c.do("GET", base+"/roots/main/expand?max=lots", nil, nil))

	var root api.RootModel
	op := api.OpRequest{Op: "extract", Of: []string{"main"}, Start: 1, End: 3, As: "mid"}
	assert.Equal(http.StatusCreated, c.do("POST", base+"/ops", op, &root))
	assert.Equal("mid", root.Name)
	assert.Equal(uint64(2), root.Length)

	assert.Equal(http.StatusOK, c.do("GET", base+"/roots/mid/expand", nil, &exp))
	assert.Equal([]string{"b", "a"}, exp.Values)

	assert.Equal(http.StatusBadRequest, c.do("POST", base+"/ops", api.OpRequest{Op: "shuffle", Of: []string{"ab"}, As: "x"}, nil))

	op = api.OpRequest{Op: "reverse", Of: []string{"mid"}, As: "dim"}
	assert.Equal(http.StatusCreated, c.do("POST", base+"/ops", op, &root))
	assert.Equal(http.StatusOK, c.do("GET", base+"/roots/dim/expand", nil, &exp))
	assert.Equal([]string{"a", "b"}, exp.Values)

	var count api.CountResponse
	assert.Equal(http.StatusOK, c.do("GET", base+"/roots/main/count?value=a", nil, &count))
	assert.Equal(uint64(2), count.Count)
	assert.Equal(http.StatusBadRequest, c.do("GET", base+"/roots/main/count", nil, nil))

	var eq api.EqualsResponse
	assert.Equal(http.StatusOK, c.do("POST", base+"/equals", api.EqualsRequest{A: "main", B: "abab"}, &eq))
	assert.True(eq.Equal)
	assert.Equal(http.StatusOK, c.do("POST", base+"/equals", api.EqualsRequest{A: "mid", B: "ab"}, &eq))
	assert.False(eq.Equal)

	// other users cannot see it
	c.do("POST", "/users", api.UserModel{Username: "weaver", Password: "pw", Role: "normal"}, nil)
	other := &testClient{t: t, srv: c.srv}
	other.login("weaver", "pw")
	assert.Equal(http.StatusForbidden, other.do("GET", base, nil, nil))

	assert.Equal(http.StatusBadRequest, c.do("POST", "/grammars", api.GrammarCreateRequest{Name: "bad", Source: "format = \"SKEIN\"\ntype = \"OTHER\"\n"}, nil))

	assert.Equal(http.StatusNoContent, c.do("DELETE", base, nil, nil))
	assert.Equal(http.StatusNotFound, c.do("GET", base, nil, nil))
}

func Test_Server_NotFoundRoute(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, http.StatusNotFound, c.do("GET", "/nothing/here", nil, nil))
}
