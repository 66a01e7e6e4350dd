// Package audit defines the structured security-event model emitted by the
// engine and the sinks that receive it.
//
// Events are dispatched off the request path through a bounded buffer; a slow
// sink never blocks an authentication operation when DropIfFull is set, at
// the cost of a counted drop.
package audit
