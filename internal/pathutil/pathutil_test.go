package pathutil

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURI(t *testing.T) {
	tests := []struct {
		name         string
		uri          string
		query        bool
		placeholders bool
		want         bool
	}{
		{"root", "/", false, false, true},
		{"simple", "/users", false, false, true},
		{"nested", "/api/v1/users", false, false, true},
		{"no leading slash", "users/list", false, false, true},
		{"trailing slash", "/users/", false, false, true},
		{"placeholder allowed", "/users/{id}", false, true, true},
		{"placeholder denied", "/users/{id}", false, false, false},
		{"embedded placeholder", "/users/x{id}", false, true, false},
		{"unbalanced brace", "/users/{id", false, true, false},
		{"empty segment", "/users//list", false, false, false},
		{"hyphen", "/user-list", false, false, false},
		{"space", "/user list", false, false, false},
		{"query allowed", "/search?q=abc&page=2", true, false, true},
		{"query denied", "/search?q=abc", false, false, false},
		{"query malformed", "/search?q=", true, false, false},
		{"query trailing amp", "/search?q=a&", true, false, false},
		{"empty", "", true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateURI(tt.uri, tt.query, tt.placeholders))
		})
	}
}

func TestExtractPathItems(t *testing.T) {
	assert.Equal(t, []string{"org", "id", "org"}, ExtractPathItems("/o/{org}/u/{id}/{org}"))
	assert.Empty(t, ExtractPathItems("/plain/path"))
	assert.Empty(t, ExtractPathItems("/broken/{}"))
}

func TestStripRemovesAllPlaceholders(t *testing.T) {
	for i := 0; i < 50; i++ {
		n := gofakeit.Number(1, 5)
		segs := make([]string, n)
		for j := range segs {
			if gofakeit.Bool() {
				segs[j] = "{" + gofakeit.LetterN(6) + "}"
			} else {
				segs[j] = gofakeit.LetterN(4)
			}
		}
		uri := "/" + strings.Join(segs, "/")
		require.True(t, ValidateURI(uri, false, true), uri)
		assert.Empty(t, ExtractPathItems(StripPathItemNames(uri)), uri)
	}
	assert.Equal(t, "/users/{}/posts/{}", StripPathItemNames("/users/{uid}/posts/{pid}"))
}

func TestSubstituteNeverReintroducesName(t *testing.T) {
	for i := 0; i < 50; i++ {
		name := gofakeit.LetterN(5)
		value := gofakeit.Word()
		uri := fmt.Sprintf("/a/{%s}/b/{%s}", name, name)
		got := SubstitutePathItem(uri, name, value)
		assert.NotContains(t, ExtractPathItems(got), name)
		assert.Equal(t, "/a/"+value+"/b/"+value, got)
	}
	assert.Equal(t, "/x/a.b*/y", SubstitutePathItem("/x/{id}/y", "id", "a.b*"))
}

func TestValidateHTTPStatusCode(t *testing.T) {
	valid := map[int]bool{}
	for _, r := range statusRanges {
		for c := r.lo; c <= r.hi; c++ {
			valid[c] = true
		}
	}
	for c := 100; c <= 999; c++ {
		assert.Equal(t, valid[c], ValidateHTTPStatusCode(strconv.Itoa(c)), c)
	}
	for _, code := range []string{"199", "600", "209", "420", "", "20", "2000", "abc", "2O0", " 200", "0200"} {
		assert.False(t, ValidateHTTPStatusCode(code), code)
	}
	for _, code := range []string{"100", "103", "226", "308", "418", "429", "431", "451", "508", "511"} {
		assert.True(t, ValidateHTTPStatusCode(code), code)
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"User", "user_id", "x-api-key", "Ärger", "a1"} {
		assert.True(t, ValidateIdentifier(ok), ok)
	}
	for _, bad := range []string{"", "1user", "_user", "-x", "us er", "a.b", "a{b}"} {
		assert.False(t, ValidateIdentifier(bad), bad)
	}
}

func TestValidateVersion(t *testing.T) {
	for _, ok := range []string{"1", "1.0", "2.10.3", "1.0b", "2024.1"} {
		assert.True(t, ValidateVersion(ok), ok)
	}
	for _, bad := range []string{"", "v1", "1.", "1.2.3.4", "12345", "1.0B"} {
		assert.False(t, ValidateVersion(bad), bad)
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "http://192.168.0.10", NormalizeAddress("192.168.0.10/"))
	assert.Equal(t, "https://api.example.com", NormalizeAddress(" https://api.example.com// "))
	assert.Equal(t, "", NormalizeAddress("  "))
}

func TestParseHeaderLines(t *testing.T) {
	got := ParseHeaderLines("Accept: application/json\n\nbroken line\n: novalue\nX-Token:  abc:def \n")
	assert.Equal(t, []Header{
		{Key: "Accept", Value: "application/json"},
		{Key: "X-Token", Value: "abc:def"},
	}, got)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "pet_store_api", StorageName("Pet Store API"))
	assert.Equal(t, "pet_store_v_2", OutputBaseName("Pet Store-V 2"))
	assert.Equal(t, "GET_users_id", FunctionSymbol("GET", "/users/{id}"))
	assert.Equal(t, "POST_items", FunctionSymbol("post", "/items"))
	assert.Equal(t, "DELETE_my_items", FunctionSymbol("DELETE", "/my-_items"))
	assert.Equal(t, "X_Api_Key", LocalSymbol("X-Api-Key"))
	assert.Equal(t, "p1st", LocalSymbol("1st"))
	assert.Equal(t, `say \"hi\"\n`, CString("say \"hi\"\n"))
	assert.Equal(t, []string{"users", "{id}"}, Segments("/users/{id}/?x=1"))
}

func TestLocalSymbolKeepsCase(t *testing.T) {
	assert.Equal(t, "userId", LocalSymbol("userId"))
	assert.Equal(t, "deviceID", LocalSymbol("deviceID"))
	// reserved words get a suffix so the local still compiles
	assert.Equal(t, "delete_", LocalSymbol("delete"))
	assert.Equal(t, "String_", LocalSymbol("String"))
	for _, name := range []string{"code", "_http", "9lives", "-x"} {
		assert.NotEqual(t, byte('_'), LocalSymbol(name)[0], name)
	}
}

func TestNamesStayInsideDirectory(t *testing.T) {
	for _, name := range []string{"../x", "a/../../b", `..\\evil`, "/etc/passwd"} {
		for _, got := range []string{StorageName(name), OutputBaseName(name)} {
			assert.NotContains(t, got, "/", name)
			assert.NotContains(t, got, `\\`, name)
			assert.NotContains(t, got, "..", name)
		}
	}
	assert.Equal(t, "__x", StorageName("../x"))
}
