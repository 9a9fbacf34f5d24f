/*
Package reconcile mirrors an upstream directory into the local store.

A run lists users, groups and organizational units page by page, diffs each
snapshot against the mirror tables of the organization and applies inserts,
updates and removals inside one transaction. After the user mirror is settled
the suspension state of every linked local identity record is brought in line
with upstream.

	orch, err := reconcile.New(db, directory.Connect,
		reconcile.WithPageSize(cfg.Sync.PageSize),
		reconcile.WithMaxRemovalPercent(cfg.Sync.MaxRemovalPercent),
	)
	if err != nil {
		return err
	}

	res := orch.Run(ctx, reconcile.Request{
		OrganizationID: "acme",
		Domain:         "acme.example",
		Credentials:    creds,
	})

Run never returns an error; failures are reported through SyncResult. Callers
must not run two reconciliations of the same organization at once, see package lease.
*/
package reconcile
