package mongo

import (
	"errors"

	"github.com/haguru/bookshelf/pkg/databases"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo/description"
)

var errNoReachableServer = errors.New("no reachable MongoDB server")

// serverMonitor keeps the link state in step with the driver's topology.
func (m *MongoDBClient) serverMonitor() *event.ServerMonitor {
	return &event.ServerMonitor{
		TopologyDescriptionChanged: func(e *event.TopologyDescriptionChangedEvent) {
			if hasReachableServer(e.NewDescription) {
				m.markUp()
				return
			}
			// the topology starts out unknown until the first heartbeat
			if hasReachableServer(e.PreviousDescription) {
				m.markDown(errNoReachableServer)
			}
		},
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			m.logger.Warn("MongoDBClient: heartbeat failed", "connection", e.ConnectionID, "error", e.Failure)
		},
		TopologyClosed: func(*event.TopologyClosedEvent) {
			m.logger.Debug("MongoDBClient: topology closed")
		},
	}
}

func hasReachableServer(topology description.Topology) bool {
	for _, server := range topology.Servers {
		if server.Kind != description.Unknown {
			return true
		}
	}
	return false
}

func (m *MongoDBClient) markUp() {
	if m.closed.Load() {
		return
	}
	if prev := m.linkErr.Swap(nil); prev != nil {
		m.logger.Info("MongoDBClient: link up")
	}
}

func (m *MongoDBClient) markDown(err error) {
	if m.closed.Load() {
		return
	}
	if prev := m.linkErr.Swap(&databases.ConnectionError{Err: err}); prev == nil {
		m.logger.Error("MongoDBClient: connection error", "error", err)
	}
}
