// Package relay forwards messages between two sessions in both directions.
//
// A run has two legs, each a goroutine that reads its source session and
// writes its destination:
//
//	client_to_upstream:  downstream.ReadMessage → ToUpstream   → upstream.WriteMessage
//	upstream_to_client:  upstream.ReadMessage   → ToDownstream → downstream.WriteMessage
//
// A leg stops on a read error or end of stream (Closed or Failed), or on a
// write error (Failed). Frames the downstream side cannot represent are
// dropped and the leg keeps going.
//
// # Shutdown
//
// The first leg to stop cancels the run. Both sessions are then closed,
// which unblocks the other leg wherever it is parked (reading from a quiet
// peer or writing to a slow one), and Run waits for it before returning.
// The other leg is reported as Cancelled.
//
// # Ordering
//
// Each leg forwards in receive order with at most one message in flight.
// Nothing is promised about ordering across the two legs.
package relay
