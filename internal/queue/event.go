// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that carries them.
package queue

// DemandAcceptedQueue is the durable queue accepted demands are announced on.
const DemandAcceptedQueue = "demand.accepted"

// DemandAcceptedEvent is published by the demand service when a provider
// accepts a demand.  The messaging service consumes it to seed the
// conversation thread.  It carries both participants so the consumer does
// not need to call back into the demand service: the publisher owns the
// demand and the broker is only reachable from inside the cluster.
type DemandAcceptedEvent struct {
    DemandID           string `json:"demand_id"`
    ClientIdentityID   string `json:"client_identity_id"`
    ProviderIdentityID string `json:"provider_identity_id"`
    ServiceID          string `json:"service_id"`
    SeedText           string `json:"seed_text"`
    AcceptedAt         string `json:"accepted_at"`
}
