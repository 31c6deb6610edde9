// Package model defines the core data structures used throughout
// the download client.
//
// # Task
//
// Task represents one bulk-download request with its lifecycle status:
//
//	task := model.NewTask(urls, "user@example.com", userID, username)
//	fmt.Println(task.TaskID) // cf_1717171717_9b0d1c2a
//
// Client-generated ids carry the OfflineTaskPrefix; once the server accepts
// a task it is tracked under the server-assigned id instead.
//
// # Status lifecycle
//
//	pending -> processing -> downloading -> completed
//	                \-> failed
//
// Tasks submitted while the session is not eligible are held locally as
// offline_pending until the pending queue is drained.
//
// # History
//
// HistoryEntryFromTask projects a task into the capped local history log,
// keeping only the first three URLs.
package model
