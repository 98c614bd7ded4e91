package matchapi

import (
	"google.golang.org/grpc"

	"github.com/oggyb/match-engine/internal/app"
)

// Registrar ties the MatchEngine service into the gRPC server
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the MatchEngine service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the MatchEngine service implementation to the gRPC server
func (r *Registrar) Register(s grpc.ServiceRegistrar) {
	RegisterMatchEngineServer(s, NewMatchEngineService(r.appCtx))
}
