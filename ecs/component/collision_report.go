package component

// CollisionReportRequest carries one backend report into the world. The
// highlight system consumes it and destroys the carrying entity.
type CollisionReportRequest struct {
	Colliding bool
	Blocks    []Block
}

var CollisionReportRequestComponent = NewComponent[CollisionReportRequest]()
