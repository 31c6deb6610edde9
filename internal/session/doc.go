// Package session implements the client-side session state machine for the
// Xueke download service.
//
// # Session
//
// A Session tracks connectivity, authentication, and license state for one
// logical user, owns the in-memory task registry and the durable offline
// queue, and runs two background loops (heartbeat and status poll):
//
//	sess := session.New(session.Options{
//	    Gateway:  api.NewClient(settings.Server.URL, settings.Timeout()),
//	    Settings: settings,
//	    Pending:  store.NewPendingStore("pending_tasks.json"),
//	    History:  store.NewHistoryStore("download_history.json"),
//	    DeviceID: store.DeviceID("device_id.txt"),
//	})
//	defer sess.Disconnect()
//
//	sess.Connect(ctx, "")
//	sess.Login(ctx, username, password)
//	sess.ValidateLicense(ctx, key)
//	id, ok := sess.SubmitDownloadTask(ctx, urls, email)
//
// # State invariants
//
// authenticated implies a known user id; licenseValid implies
// authenticated. Logout clears both along with the identity fields.
//
// # Offline tasks
//
// Tasks submitted while the session is not authenticated and licensed are
// queued locally with status offline_pending and persisted. Once the
// license validates (or a login finds an already-valid license), the queue
// is drained: snapshotted and cleared atomically, then each task submitted
// in order. Failed resubmissions are dropped; the OnDrainDrop option
// observes the drops.
//
// # Events
//
// Operations never return errors. Outcomes surface as typed events on the
// registered sinks:
//
//	sess.Notifier().RegisterStatus(session.StatusFunc(func(e session.StatusEvent) {
//	    fmt.Println(e.Kind)
//	}))
//	sess.Notifier().RegisterError(session.ErrorFunc(func(err error) {
//	    fmt.Println("error:", err)
//	}))
//
// A failing sink never blocks delivery to the others.
//
// # Concurrency
//
// All methods are safe for concurrent use. One coarse mutex guards the
// state and the task registry; the pending queue has its own lock so the
// drain can snapshot and clear it atomically against concurrent
// submissions. Disconnect stops the loops cooperatively and joins each
// with a bounded timeout.
package session
