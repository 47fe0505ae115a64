// Package kanboard is a client for the Kanboard JSON-RPC 2.0 API.
//
// Every API procedure is reachable by name; there is no generated method per
// procedure. Names may be given in snake_case and are translated to the
// camelCase names the server expects:
//
//	client, err := kanboard.NewClient(kanboard.Config{
//		URL:      "https://kanboard.example.com/jsonrpc.php",
//		Username: "jsonrpc",
//		Password: token,
//	})
//	if err != nil {
//		return err
//	}
//
//	projectID, err := client.Call(ctx, "create_project", kanboard.Params{"name": "Ops"})
//
// Names ending in "_async" select the asynchronous shape when passed to
// Dispatch or Procedure.Invoke. The call then runs on its own goroutine and
// its outcome is collected from the returned Future:
//
//	f := client.Dispatch(ctx, "get_all_projects_async", nil)
//	projects, err := f.Await(ctx)
//
// Results come back as encoding/json decodes them into an any, with numbers
// as float64. CallInto and ExecuteInto decode into a typed value instead,
// which keeps large integer ids exact:
//
//	var taskID int64
//	err := client.CallInto(ctx, "create_task", kanboard.Params{"project_id": 1, "title": "Fix"}, &taskID)
//
// All call failures are returned as *ClientError. Server-side JSON-RPC errors
// carry the server's message and code; transport failures wrap the
// underlying error.
package kanboard
