package dispatch

import (
	"context"
	"errors"
	"strconv"

	"github.com/shopcore/shopcore/internal/auth"
	"github.com/shopcore/shopcore/internal/entity"
	"github.com/shopcore/shopcore/internal/repository"
	"github.com/shopcore/shopcore/internal/response"
)

const defaultPageSize = 10

func opCreate(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	obj, ok := req.Body[d.Name].(map[string]any)
	if !ok {
		return response.BadRequest(d.Name + " data is required to create a " + d.Name + ".")
	}

	rec, err := d.BuildRecord(obj, true)
	if err != nil {
		return response.BadRequest(err.Error())
	}
	if req.Actor != nil {
		if _, set := rec["created_by"]; !set {
			rec["created_by"] = req.Actor.UserID
		}
	}
	if err := hashCredentials(d, rec); err != nil {
		return response.InternalError(err.Error())
	}

	stored, err := store.Insert(ctx, d, rec)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return response.NotAcceptable(d.Name + " creation failed: duplicate value for a unique column.")
		}
		return response.InternalError(err.Error())
	}

	return response.Success(d.Name + " created successfully").
		With(d.Name, d.Scrub(stored))
}

func opFetch(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	id := resolveID(d, req)
	if id == "" {
		return response.BadRequest(d.PrimaryKey() + " is required to fetch " + d.Name + " details.")
	}

	rec, err := store.GetByID(ctx, d, id, req.Params.IncludeDeleted)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.EntityNotFound(d.Name)
		}
		return response.InternalError(err.Error())
	}

	return response.Success(d.Name + " fetched successfully").
		With(d.Name, d.Scrub(rec))
}

func opFetchAll(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	recs, err := store.List(ctx, d, repository.ListOptions{
		IncludeDeleted: req.Params.IncludeDeleted,
	})
	if err != nil {
		return response.InternalError(err.Error())
	}
	if len(recs) == 0 {
		return response.EntityNotFound(d.Name)
	}

	return response.Success("all " + d.Name + " records fetched successfully").
		With(d.Name, scrubAll(d, recs))
}

func opUpdate(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	obj, ok := req.Body[d.Name].(map[string]any)
	if !ok {
		return response.BadRequest(d.Name + " data is required to update a " + d.Name + ".")
	}

	changes, err := d.BuildRecord(obj, false)
	if err != nil {
		return response.BadRequest(err.Error())
	}

	id := resolveID(d, req)
	if id == "" {
		if v, ok := changes[d.PrimaryKey()].(string); ok {
			id = v
		}
	}
	if id == "" {
		return response.BadRequest(d.PrimaryKey() + " is required to update " + d.Name + " details.")
	}
	if req.Actor != nil {
		if _, set := changes["modified_by"]; !set {
			changes["modified_by"] = req.Actor.UserID
		}
	}
	if err := hashCredentials(d, changes); err != nil {
		return response.InternalError(err.Error())
	}

	updated, err := store.Update(ctx, d, id, changes)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return response.EntityNotFound(d.Name)
		case errors.Is(err, repository.ErrConflict):
			return response.NotAcceptable(d.Name + " update failed: duplicate value for a unique column.")
		default:
			return response.InternalError(err.Error())
		}
	}

	return response.Success(d.Name + " updated successfully").
		With(d.Name, d.Scrub(updated))
}

func opDelete(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	id := resolveID(d, req)
	if id == "" {
		return response.BadRequest(d.PrimaryKey() + " is required to delete " + d.Name + " details.")
	}

	// Confirm the row is live before marking it deleted.
	if _, err := store.GetByID(ctx, d, id, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.EntityNotFound(d.Name)
		}
		return response.InternalError(err.Error())
	}

	deletedBy := ""
	if req.Actor != nil {
		deletedBy = req.Actor.UserID
	}

	deleted, err := store.SoftDelete(ctx, d, id, deletedBy)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.EntityNotFound(d.Name)
		}
		return response.InternalError(err.Error())
	}

	return response.Success(d.Name + " deleted successfully").
		With(d.Name, d.Scrub(deleted))
}

func opTotal(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	opts := searchOptions(req)

	total, err := store.Count(ctx, d, opts)
	if err != nil {
		if errors.Is(err, entity.ErrUnknownColumn) {
			return response.BadRequest("selected_column is not a declared column of " + d.Name + ".")
		}
		return response.InternalError(err.Error())
	}

	return response.Success("total " + d.Name + " records fetched successfully").
		With("total", total)
}

func opLimited(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	opts := repository.ListOptions{
		Skip:           queryInt(req, "skip", 0),
		Limit:          queryInt(req, "limit", defaultPageSize),
		IncludeDeleted: req.Params.IncludeDeleted,
	}

	recs, err := store.List(ctx, d, opts)
	if err != nil {
		return response.InternalError(err.Error())
	}

	return response.Success("limited " + d.Name + " records fetched successfully").
		With(d.Name, scrubAll(d, recs)).
		With("columns", d.ColumnNames())
}

func opFiltered(ctx context.Context, store Store, d *entity.Descriptor, req *Request) response.Envelope {
	opts := searchOptions(req)
	opts.Skip = queryInt(req, "skip", 0)
	opts.Limit = queryInt(req, "limit", defaultPageSize)

	recs, err := store.List(ctx, d, opts)
	if err != nil {
		if errors.Is(err, entity.ErrUnknownColumn) {
			return response.BadRequest("selected_column is not a declared column of " + d.Name + ".")
		}
		return response.InternalError(err.Error())
	}

	return response.Success("filtered " + d.Name + " records fetched successfully").
		With(d.Name, scrubAll(d, recs)).
		With("columns", d.ColumnNames())
}

// hashCredentials replaces a plaintext user password with its argon2id hash
// before the record can reach the store. Login verifies against the stored
// PHC string; a raw password must never be persisted.
func hashCredentials(d *entity.Descriptor, rec repository.Record) error {
	if d.Name != "user" {
		return nil
	}
	password, ok := rec["password"].(string)
	if !ok || password == "" {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	rec["password"] = hash
	return nil
}

// resolveID finds the record identifier: explicit path ID first, then the
// entity's own key field, a nested current-entity object, and finally the
// generic entity_id alias.
func resolveID(d *entity.Descriptor, req *Request) string {
	if req.ID != "" {
		return req.ID
	}
	if req.Body == nil {
		return ""
	}
	if v, ok := req.Body[d.PrimaryKey()].(string); ok && v != "" {
		return v
	}
	if current, ok := req.Body["current_"+d.Name].(map[string]any); ok {
		if v, ok := current[d.PrimaryKey()].(string); ok && v != "" {
			return v
		}
	}
	if v, ok := req.Body["entity_id"].(string); ok && v != "" {
		return v
	}
	return ""
}

func searchOptions(req *Request) repository.ListOptions {
	return repository.ListOptions{
		SearchString:   req.Query.Get("search_string"),
		SelectedColumn: req.Query.Get("selected_column"),
		IncludeDeleted: req.Params.IncludeDeleted,
	}
}

func queryInt(req *Request, key string, fallback int) int {
	raw := req.Query.Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func scrubAll(d *entity.Descriptor, recs []repository.Record) []map[string]any {
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		out[i] = d.Scrub(rec)
	}
	return out
}
