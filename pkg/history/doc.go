// Package history records per-block resource usage rows in SQLite and
// prunes them on a retention schedule.
//
// The recorder keeps one row per finalized block: the block's aggregate
// CPU and network consumption and the elastic limits in force when it was
// finalized. Rows feed the status API's usage history endpoint and ad-hoc
// capacity analysis. A cron-driven scheduler deletes rows older than the
// configured retention period.
package history
