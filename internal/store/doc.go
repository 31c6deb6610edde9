// Package store provides the durable local state of the client: the device
// identity, the offline task queue, and the download history.
//
// # Device identity
//
//	id := store.DeviceID("device_id.txt")
//
// The id is generated once per installation and reused on every run; the
// server binds licenses to it.
//
// # Pending queue
//
//	pending := store.NewPendingStore("pending_tasks.json")
//	tasks, _ := pending.Load()
//	pending.Save(tasks)
//
// # History
//
//	history := store.NewHistoryStore("download_history.json")
//	history.Append(entry) // keeps the most recent 50
//
// All files are plain indented JSON so users can inspect them.
package store
