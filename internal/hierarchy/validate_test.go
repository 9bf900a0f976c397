package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rolePtr(r SenapotiRole) *SenapotiRole { return &r }

func TestValidateTransitionPromotions(t *testing.T) {
	cases := []struct {
		name    string
		current SenapotiRole
		target  SenapotiRole
		valid   bool
	}{
		{"maha chakra to mala", MahaChakraSenapoti, MalaSenapoti, true},
		{"chakra to maha chakra", ChakraSenapoti, MahaChakraSenapoti, true},
		{"upa chakra to chakra", UpaChakraSenapoti, ChakraSenapoti, true},
		{"upa chakra cannot skip to mala", UpaChakraSenapoti, MalaSenapoti, false},
		{"chakra cannot skip to mala", ChakraSenapoti, MalaSenapoti, false},
		{"mala has nowhere to go", MalaSenapoti, MahaChakraSenapoti, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateTransition(rolePtr(tc.current), rolePtr(tc.target), ChangePromote)
			require.Equal(t, tc.valid, result.IsValid, "errors: %v", result.Errors)
		})
	}
}

func TestValidateTransitionDemotions(t *testing.T) {
	cases := []struct {
		name    string
		current SenapotiRole
		target  SenapotiRole
		valid   bool
	}{
		{"mala to maha chakra", MalaSenapoti, MahaChakraSenapoti, true},
		{"mala can skip to upa chakra", MalaSenapoti, UpaChakraSenapoti, true},
		{"maha chakra to chakra", MahaChakraSenapoti, ChakraSenapoti, true},
		{"upa chakra has no demotion", UpaChakraSenapoti, ChakraSenapoti, false},
		{"chakra cannot demote upward", ChakraSenapoti, MahaChakraSenapoti, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateTransition(rolePtr(tc.current), rolePtr(tc.target), ChangeDemote)
			require.Equal(t, tc.valid, result.IsValid, "errors: %v", result.Errors)
		})
	}
}

func TestValidateTransitionRemove(t *testing.T) {
	result := ValidateTransition(rolePtr(MalaSenapoti), nil, ChangeRemove)
	require.True(t, result.IsValid)

	result = ValidateTransition(nil, nil, ChangeRemove)
	require.False(t, result.IsValid)
	require.Contains(t, result.Errors[0], "no current role")
}

func TestValidateTransitionNullHandling(t *testing.T) {
	result := ValidateTransition(nil, nil, ChangePromote)
	require.False(t, result.IsValid)

	result = ValidateTransition(rolePtr(ChakraSenapoti), nil, ChangePromote)
	require.False(t, result.IsValid)
	require.Contains(t, result.Errors[0], "target role cannot be null")
}

func TestValidateTransitionFreshAssignmentWarns(t *testing.T) {
	result := ValidateTransition(nil, rolePtr(ChakraSenapoti), ChangePromote)
	require.True(t, result.IsValid)
	require.NotEmpty(t, result.Warnings)
}

func TestValidateTransitionReplaceIsUnrestricted(t *testing.T) {
	result := ValidateTransition(rolePtr(UpaChakraSenapoti), rolePtr(MalaSenapoti), ChangeReplace)
	require.True(t, result.IsValid)
}

func TestValidateTransitionRejectsUnknownRoles(t *testing.T) {
	bogus := SenapotiRole("GRAND_SENAPOTI")
	result := ValidateTransition(rolePtr(MalaSenapoti), &bogus, ChangeDemote)
	require.False(t, result.IsValid)

	result = ValidateTransition(&bogus, rolePtr(ChakraSenapoti), ChangePromote)
	require.False(t, result.IsValid)
}

func TestValidTargetRoles(t *testing.T) {
	require.Equal(t, []SenapotiRole{MalaSenapoti}, ValidTargetRoles(rolePtr(MahaChakraSenapoti), ChangePromote))
	require.Empty(t, ValidTargetRoles(rolePtr(MalaSenapoti), ChangePromote))
	require.Equal(t, SenapotiRoles(), ValidTargetRoles(nil, ChangePromote))
	require.Empty(t, ValidTargetRoles(rolePtr(MalaSenapoti), ChangeRemove))
	require.Equal(t, SenapotiRoles(), ValidTargetRoles(rolePtr(UpaChakraSenapoti), ChangeReplace))
}

func TestRequiresSubordinateTransfer(t *testing.T) {
	cases := []struct {
		name    string
		current *SenapotiRole
		change  ChangeType
		want    bool
	}{
		{"mala demote", rolePtr(MalaSenapoti), ChangeDemote, true},
		{"mala remove", rolePtr(MalaSenapoti), ChangeRemove, true},
		{"chakra promote", rolePtr(ChakraSenapoti), ChangePromote, true},
		{"chakra replace", rolePtr(ChakraSenapoti), ChangeReplace, true},
		{"upa chakra manages nobody", rolePtr(UpaChakraSenapoti), ChangeDemote, false},
		{"fresh assignment", nil, ChangePromote, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, RequiresSubordinateTransfer(tc.current, tc.change))
		})
	}
}

func TestParseSenapotiRole(t *testing.T) {
	role, err := ParseSenapotiRole("  mala_senapoti ")
	require.NoError(t, err)
	require.Equal(t, MalaSenapoti, role)

	_, err = ParseSenapotiRole("DISTRICT_SUPERVISOR")
	require.Error(t, err)

	_, err = ParseSenapotiRole("")
	require.Error(t, err)
}

func TestExpectedSupervisorRole(t *testing.T) {
	require.Equal(t, DistrictSupervisorRole, ExpectedSupervisorRole(MalaSenapoti))
	require.Equal(t, string(MalaSenapoti), ExpectedSupervisorRole(MahaChakraSenapoti))
	require.Equal(t, string(ChakraSenapoti), ExpectedSupervisorRole(UpaChakraSenapoti))
}
