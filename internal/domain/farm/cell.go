package farm

// CellKind values double as the wire codes of the state grid.
type CellKind int

const (
	CellEmpty         CellKind = 0
	CellObstacle      CellKind = 1
	CellCrop          CellKind = 2
	CellPath          CellKind = 3
	CellManager       CellKind = 4
	CellPlanterBarn   CellKind = 6
	CellHarvesterBarn CellKind = 7
	CellIrrigatorBarn CellKind = 8
	CellParcelBorder  CellKind = 11
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellObstacle:
		return "obstacle"
	case CellCrop:
		return "crop"
	case CellPath:
		return "path"
	case CellManager:
		return "manager"
	case CellPlanterBarn:
		return "planter_barn"
	case CellHarvesterBarn:
		return "harvester_barn"
	case CellIrrigatorBarn:
		return "irrigator_barn"
	case CellParcelBorder:
		return "parcel_border"
	default:
		return "unknown"
	}
}

func (k CellKind) IsBarn() bool {
	switch k {
	case CellPlanterBarn, CellHarvesterBarn, CellIrrigatorBarn, CellManager:
		return true
	default:
		return false
	}
}

type Role string

const (
	RolePlanter   Role = "planter"
	RoleHarvester Role = "harvester"
	RoleIrrigator Role = "irrigator"
)

func (r Role) Valid() bool {
	switch r {
	case RolePlanter, RoleHarvester, RoleIrrigator:
		return true
	default:
		return false
	}
}

func (r Role) BarnKind() CellKind {
	switch r {
	case RolePlanter:
		return CellPlanterBarn
	case RoleHarvester:
		return CellHarvesterBarn
	case RoleIrrigator:
		return CellIrrigatorBarn
	default:
		return CellManager
	}
}

func AllRoles() []Role {
	return []Role{RolePlanter, RoleHarvester, RoleIrrigator}
}
