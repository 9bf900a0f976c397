package hierarchy

// Policy fixes the rank and the legal moves for one senapoti role. The
// table is defined at compile time and never persisted.
type Policy struct {
	Rank         int
	ReportsTo    string
	CanPromoteTo []SenapotiRole
	CanDemoteTo  []SenapotiRole
	Manages      []SenapotiRole
}

// Rank 1 is the top of the chain. MALA_SENAPOTI cannot be promoted;
// UPA_CHAKRA_SENAPOTI cannot be demoted (a further demotion is a removal).
var policyTable = map[SenapotiRole]Policy{
	MalaSenapoti: {
		Rank:         1,
		ReportsTo:    DistrictSupervisorRole,
		CanPromoteTo: nil,
		CanDemoteTo:  []SenapotiRole{MahaChakraSenapoti, ChakraSenapoti, UpaChakraSenapoti},
		Manages:      []SenapotiRole{MahaChakraSenapoti},
	},
	MahaChakraSenapoti: {
		Rank:         2,
		ReportsTo:    string(MalaSenapoti),
		CanPromoteTo: []SenapotiRole{MalaSenapoti},
		CanDemoteTo:  []SenapotiRole{ChakraSenapoti, UpaChakraSenapoti},
		Manages:      []SenapotiRole{ChakraSenapoti},
	},
	ChakraSenapoti: {
		Rank:         3,
		ReportsTo:    string(MahaChakraSenapoti),
		CanPromoteTo: []SenapotiRole{MahaChakraSenapoti},
		CanDemoteTo:  []SenapotiRole{UpaChakraSenapoti},
		Manages:      []SenapotiRole{UpaChakraSenapoti},
	},
	UpaChakraSenapoti: {
		Rank:         4,
		ReportsTo:    string(ChakraSenapoti),
		CanPromoteTo: []SenapotiRole{ChakraSenapoti},
		CanDemoteTo:  nil,
		Manages:      nil,
	},
}

// PolicyFor looks up the policy row for a role.
func PolicyFor(role SenapotiRole) (Policy, bool) {
	p, ok := policyTable[role]
	return p, ok
}

// ExpectedSupervisorRole returns the role a member of the given role
// reports to.
func ExpectedSupervisorRole(role SenapotiRole) string {
	return policyTable[role].ReportsTo
}

// SubordinateRoles returns the roles directly managed by the given role.
func SubordinateRoles(role SenapotiRole) []SenapotiRole {
	return policyTable[role].Manages
}

func containsRole(roles []SenapotiRole, role SenapotiRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
