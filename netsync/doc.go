/*
Package netsync implements the peer message-processing core of a full
node: per-peer sync state, the block download scheduler, inventory relay
and recent-rejects filtering, the orphan pool, inbound message dispatch,
and the periodic outbound tick. The SyncManager communicates with
connected peers to perform an initial block download, keep the active
chain and unconfirmed transaction/service-transaction pools in sync, and
announce newly connected blocks. It selects a single sync peer that it
downloads headers and blocks from until it is up to date with that peer's
advertised tip, then falls back to opportunistic direct-fetch from any
peer that announces a block this node is missing.
*/
package netsync
