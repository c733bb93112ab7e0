package ports

import "farmcycle/internal/domain/farm"

type SimMetrics interface {
	RecordTick(terminal bool)
	RecordCollisions(n int)
	RecordAction(role farm.Role, kind string)
	RecordOutOfFuel()
	RecordRecharge()
}
