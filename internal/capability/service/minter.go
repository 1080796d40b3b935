package service

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/warden/internal/capability/domain"
	apperrors "github.com/allisson/warden/internal/errors"
	appvalidation "github.com/allisson/warden/internal/validation"
)

// permissionMapping maps {resource, action} pairs from the directive's
// permission list to capability names. Unknown pairs fail the mint: an
// unrecognized permission is never silently widened or ignored.
var permissionMapping = map[[2]string]string{
	{"filesystem", "read"}:     domain.FSRead,
	{"filesystem", "write"}:    domain.FSWrite,
	{"filesystem", "delete"}:   domain.FSDelete,
	{"filesystem", "absolute"}: domain.FSAbsolute,
	{"network", "http"}:        domain.NetHTTP,
	{"process", "spawn"}:       domain.ProcSpawn,
	{"tool", "execute"}:        domain.ToolExecute,
	{"thread", "spawn"}:        domain.SpawnThread,
	{"registry", "write"}:      domain.RegistryWrite,
	{"extractor", "modify"}:    domain.ExtractorModify,
}

// MinterConfig holds minting policy knobs.
type MinterConfig struct {
	// Audience identifies the execution host tokens are minted for.
	Audience string
	// DefaultTTL is applied when the caller passes a zero TTL.
	DefaultTTL time.Duration
	// MaxTTL is the upper bound on any requested lifetime.
	MaxTTL time.Duration
}

type minter struct {
	config MinterConfig
	signer Signer
	now    func() time.Time
}

// NewMinter creates a Minter that validates directive grants and signs the
// resulting tokens. The same Minter is used on both the authoring path
// (directive create/update) and the execution path (run), so an invalid grant
// can never reach storage.
func NewMinter(config MinterConfig, signer Signer) Minter {
	return &minter{config: config, signer: signer, now: func() time.Time { return time.Now().UTC() }}
}

// NewMinterWithClock creates a Minter with an injected clock for tests.
func NewMinterWithClock(config MinterConfig, signer Signer, now func() time.Time) Minter {
	return &minter{config: config, signer: signer, now: now}
}

// Mint converts the directive's permission set into a signed capability token
// for a new thread. For each entry: the {resource, action} pair is mapped to a
// capability, attributes become the grant scope, the family's scope
// requirement is enforced, and system-only capabilities are rejected unless
// the directive category is core.
func (m *minter) Mint(
	_ context.Context,
	set domain.PermissionSet,
	threadID uuid.UUID,
	directiveID uuid.UUID,
	ttl time.Duration,
) (*domain.CapabilityToken, error) {
	if !set.Category.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown directive category %q", set.Category)
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	if err := (appvalidation.TTLRange{Max: m.config.MaxTTL}).Validate(ttl); err != nil {
		return nil, appvalidation.WrapValidationError(err)
	}

	grants := make([]domain.CapabilityGrant, 0, len(set.Entries))
	for _, entry := range set.Entries {
		grant, err := m.mapEntry(entry, set.Category)
		if err != nil {
			return nil, err
		}
		grants = append(grants, grant)
	}

	now := m.now()
	token := &domain.CapabilityToken{
		ID:          uuid.Must(uuid.NewV7()),
		Caps:        grants,
		Audience:    m.config.Audience,
		IssuedAt:    now,
		ExpiresAt:   now.Add(ttl),
		DirectiveID: directiveID,
		ThreadID:    threadID,
	}

	if err := SignToken(m.signer, token); err != nil {
		return nil, apperrors.Wrap(err, "failed to sign token")
	}
	return token, nil
}

// mapEntry converts one permission entry to a validated grant.
func (m *minter) mapEntry(entry domain.PermissionEntry, category domain.Category) (domain.CapabilityGrant, error) {
	entryErrors := validation.Errors{
		"resource": validation.Validate(entry.Resource, validation.Required, appvalidation.Identifier{}),
		"action":   validation.Validate(entry.Action, validation.Required, appvalidation.Identifier{}),
	}
	if err := entryErrors.Filter(); err != nil {
		return domain.CapabilityGrant{}, appvalidation.WrapValidationError(err)
	}

	capability, ok := permissionMapping[[2]string{entry.Resource, entry.Action}]
	if !ok {
		return domain.CapabilityGrant{}, apperrors.Wrapf(
			apperrors.ErrInvalidInput,
			"unknown permission %s/%s", entry.Resource, entry.Action,
		)
	}

	if domain.IsSystemOnly(capability) && category != domain.CategoryCore {
		return domain.CapabilityGrant{}, &domain.SystemCapabilityError{Capability: capability, Category: category}
	}

	grant := domain.CapabilityGrant{Capability: capability}
	if len(entry.Attrs) > 0 {
		grant.Scope = make(map[string]string, len(entry.Attrs))
		for k, v := range entry.Attrs {
			grant.Scope[k] = v
		}
	}

	if err := grant.Validate(); err != nil {
		return domain.CapabilityGrant{}, err
	}

	// Path scopes must be sane glob patterns. Absolute patterns are only
	// meaningful for core directives, which can hold fs.absolute.
	if path := grant.Path(); path != "" {
		rule := appvalidation.GlobPattern{AllowAbsolute: category == domain.CategoryCore}
		if err := rule.Validate(path); err != nil {
			return domain.CapabilityGrant{}, appvalidation.WrapValidationError(err)
		}
	}

	return grant, nil
}
