// Package message defines the canonical socket message used by the relay and
// the mapping between the two sides' vocabularies.
//
// The downstream (client facing) vocabulary has exactly the standard
// message categories:
//
//	text, binary, ping, pong, close
//
// The upstream vocabulary adds raw frames, which a frame level reader may
// surface (continuations, reserved opcodes). Those have no downstream
// equivalent:
//
//	up := message.ToUpstream(msg)          // always succeeds
//	down, ok := message.ToDownstream(up)   // ok is false for raw frames
//
// Neither direction inspects or rewrites payloads.
package message
