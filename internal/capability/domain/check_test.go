package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/warden/internal/errors"
	"github.com/allisson/warden/internal/pathscope"
)

func testToken(caps []CapabilityGrant, expiresIn time.Duration) *CapabilityToken {
	now := time.Now().UTC()
	return &CapabilityToken{
		ID:          uuid.Must(uuid.NewV7()),
		Caps:        caps,
		Audience:    "warden",
		IssuedAt:    now,
		ExpiresAt:   now.Add(expiresIn),
		DirectiveID: uuid.Must(uuid.NewV7()),
		ThreadID:    uuid.Must(uuid.NewV7()),
	}
}

func TestCheckCall(t *testing.T) {
	root := t.TempDir()
	now := time.Now().UTC()

	t.Run("Success_PathInScope", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSRead, Scope: map[string]string{ScopePath: "src/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSRead}, CallTarget{Path: "src/main.py"}, root, now)
		assert.NoError(t, err)
	})

	t.Run("Fail_ExpiredToken", func(t *testing.T) {
		token := testToken(nil, -time.Minute)

		err := CheckCall(token, nil, CallTarget{}, root, now)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Fail_MissingCapability", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSRead, Scope: map[string]string{ScopePath: "src/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSWrite}, CallTarget{Path: "src/main.py"}, root, now)

		var missingErr *MissingCapabilityError
		assert.ErrorAs(t, err, &missingErr)
		assert.Equal(t, FSWrite, missingErr.Capability)
		assert.Contains(t, missingErr.Granted, FSRead)
		assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
	})

	t.Run("Fail_PathNotInScope", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSWrite, Scope: map[string]string{ScopePath: "temp/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSWrite}, CallTarget{Path: "src/main.py"}, root, now)

		var pathErr *PathScopeError
		assert.ErrorAs(t, err, &pathErr)
		assert.Equal(t, "src/main.py", pathErr.Path)
		assert.Equal(t, []string{"temp/**"}, pathErr.Patterns)
	})

	t.Run("Fail_PathEscapesRoot", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSRead, Scope: map[string]string{ScopePath: "**/*"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSRead}, CallTarget{Path: "../../etc/passwd"}, root, now)
		assert.ErrorIs(t, err, pathscope.ErrOutsideRoot)
	})

	t.Run("Fail_AbsolutePathWithoutFSAbsolute", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSWrite, Scope: map[string]string{ScopePath: "/tmp/backups/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSWrite}, CallTarget{Path: "/tmp/backups/db.sql"}, root, now)
		assert.ErrorIs(t, err, pathscope.ErrAbsolutePath)
	})

	t.Run("Success_AbsolutePathWithFSAbsolute", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSAbsolute},
			{Capability: FSWrite, Scope: map[string]string{ScopePath: "/tmp/backups/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSWrite}, CallTarget{Path: "/tmp/backups/db.sql"}, root, now)
		assert.NoError(t, err)
	})

	t.Run("Fail_PathScopedCallWithoutPath", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSRead, Scope: map[string]string{ScopePath: "src/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSRead}, CallTarget{}, root, now)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Success_MultiplePathGrants", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: FSRead, Scope: map[string]string{ScopePath: "docs/**"}},
			{Capability: FSRead, Scope: map[string]string{ScopePath: "src/**"}},
		}, time.Hour)

		err := CheckCall(token, []string{FSRead}, CallTarget{Path: "src/main.py"}, root, now)
		assert.NoError(t, err)
	})

	t.Run("ToolScope_ExactAndWildcard", func(t *testing.T) {
		token := testToken([]CapabilityGrant{
			{Capability: ToolExecute, Scope: map[string]string{ScopeID: "shell.*"}},
		}, time.Hour)

		assert.NoError(t, CheckCall(token, []string{ToolExecute}, CallTarget{ToolID: "shell.run"}, root, now))

		err := CheckCall(token, []string{ToolExecute}, CallTarget{ToolID: "http.get"}, root, now)
		var scopeErr *ScopeMismatchError
		assert.ErrorAs(t, err, &scopeErr)
		assert.Equal(t, "http.get", scopeErr.Target)
	})

	t.Run("ScopeFreeCapability", func(t *testing.T) {
		token := testToken([]CapabilityGrant{{Capability: NetHTTP}}, time.Hour)

		assert.NoError(t, CheckCall(token, []string{NetHTTP}, CallTarget{}, root, now))
	})
}

func TestCapabilityGrant_Validate(t *testing.T) {
	t.Run("path scope required for fs family", func(t *testing.T) {
		err := CapabilityGrant{Capability: FSWrite}.Validate()

		var missingScope *MissingScopeError
		assert.ErrorAs(t, err, &missingScope)
		assert.Equal(t, ScopePath, missingScope.ScopeKey)
	})

	t.Run("id scope required for tool.execute", func(t *testing.T) {
		err := CapabilityGrant{Capability: ToolExecute}.Validate()
		assert.Error(t, err)
	})

	t.Run("scope-free capability valid without scope", func(t *testing.T) {
		assert.NoError(t, CapabilityGrant{Capability: NetHTTP}.Validate())
		assert.NoError(t, CapabilityGrant{Capability: FSAbsolute}.Validate())
	})
}

func TestCapabilityToken_Expired(t *testing.T) {
	now := time.Now().UTC()
	token := testToken(nil, time.Hour)

	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(token.ExpiresAt)) // expiry instant is exclusive
	assert.True(t, token.Expired(token.ExpiresAt.Add(time.Second)))
}

func TestGrantString(t *testing.T) {
	g := CapabilityGrant{Capability: FSWrite, Scope: map[string]string{ScopePath: "src/**"}}
	assert.Equal(t, `fs.write{path:"src/**"}`, g.String())

	assert.Equal(t, "net.http", CapabilityGrant{Capability: NetHTTP}.String())
}
