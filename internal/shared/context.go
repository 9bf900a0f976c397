package shared

import "context"

type principalContextKey struct{}

type districtContextKey struct{}

// Principal describes the authenticated actor attached to a request.
// Districts always reflect the current directory state, not the token.
type Principal struct {
	ID        int64
	Username  string
	Role      string
	Districts []string
}

// DistrictConstraint is the query restriction derived from the principal.
// Restricted=false means the caller may see every district.
type DistrictConstraint struct {
	Restricted bool
	Codes      []string
}

// Allows reports whether the constraint permits the given district code.
func (c DistrictConstraint) Allows(code string) bool {
	if !c.Restricted {
		return true
	}
	for _, d := range c.Codes {
		if d == code {
			return true
		}
	}
	return false
}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}

// ContextWithDistricts stores the district constraint in context.
func ContextWithDistricts(ctx context.Context, c DistrictConstraint) context.Context {
	return context.WithValue(ctx, districtContextKey{}, c)
}

// DistrictsFromContext extracts the district constraint. The zero value is
// unrestricted, so handlers that skip the scope middleware see no filter.
func DistrictsFromContext(ctx context.Context) DistrictConstraint {
	c, _ := ctx.Value(districtContextKey{}).(DistrictConstraint)
	return c
}
