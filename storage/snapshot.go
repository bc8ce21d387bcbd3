package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

// TableSnapshot persists repository snapshots to an Azure Table. Each entity
// is one row: the entity kind is the partition key, the zero padded id the
// row key, and the JSON record is stored in the Data column. Id sequences
// live in the meta partition, one row per entity kind.
type TableSnapshot struct {
	table *aztables.Client
}

// NewTableSnapshot creates a snapshot store from the given connection string.
func NewTableSnapshot(connStr, table string) (*TableSnapshot, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &TableSnapshot{table: svc.NewClient(table)}, nil
}

type snapshotEntity struct {
	aztables.Entity
	Data string `json:"Data"`
}

const (
	partitionProjects = "project"
	partitionTasks    = "task"
	partitionUsers    = "user"
	partitionComments = "comment"
	partitionMeta     = "meta"
)

func rowKey(id int64) string {
	return fmt.Sprintf("%019d", id)
}

// Load reads every row of the table into a snapshot.
func (s *TableSnapshot) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	pager := s.table.NewListEntitiesPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return Snapshot{}, err
		}
		for _, raw := range resp.Entities {
			if err := decodeSnapshotEntity(raw, &snap); err != nil {
				return Snapshot{}, err
			}
		}
	}
	return snap, nil
}

// decodeSnapshotEntity appends the record held by one table row to snap.
// Rows of unknown partitions are ignored.
func decodeSnapshotEntity(raw []byte, snap *Snapshot) error {
	var ent snapshotEntity
	if err := json.Unmarshal(raw, &ent); err != nil {
		return err
	}
	data := []byte(ent.Data)
	var err error
	switch ent.PartitionKey {
	case partitionProjects:
		err = appendDecoded(data, &snap.Projects)
	case partitionTasks:
		err = appendDecoded(data, &snap.Tasks)
	case partitionUsers:
		err = appendDecoded(data, &snap.Users)
	case partitionComments:
		err = appendDecoded(data, &snap.Comments)
	case partitionMeta:
		var seq int64
		if err = json.Unmarshal(data, &seq); err == nil {
			if snap.Sequences == nil {
				snap.Sequences = make(map[string]int64)
			}
			snap.Sequences[ent.RowKey] = seq
		}
	}
	if err != nil {
		return fmt.Errorf("decode %s row %s: %w", ent.PartitionKey, ent.RowKey, err)
	}
	return nil
}

func appendDecoded[T any](data []byte, dst *[]T) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = append(*dst, v)
	return nil
}

// Save upserts every entity of snap and deletes rows of entities that no
// longer exist.
func (s *TableSnapshot) Save(ctx context.Context, snap Snapshot) error {
	rows, err := snapshotRows(snap)
	if err != nil {
		return err
	}
	existing, err := s.keys(ctx)
	if err != nil {
		return err
	}
	for key, payload := range rows {
		if _, err := s.table.UpsertEntity(ctx, payload, nil); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", key[0], key[1], err)
		}
		delete(existing, key)
	}
	for key := range existing {
		if _, err := s.table.DeleteEntity(ctx, key[0], key[1], nil); err != nil {
			return fmt.Errorf("delete %s/%s: %w", key[0], key[1], err)
		}
	}
	return nil
}

type rowRef [2]string

func snapshotRows(snap Snapshot) (map[rowRef][]byte, error) {
	rows := make(map[rowRef][]byte)
	addRow := func(pk, rk string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(map[string]any{
			"PartitionKey": pk,
			"RowKey":       rk,
			"Data":         string(data),
		})
		if err != nil {
			return err
		}
		rows[rowRef{pk, rk}] = payload
		return nil
	}
	add := func(pk string, id int64, v any) error {
		return addRow(pk, rowKey(id), v)
	}
	for _, p := range snap.Projects {
		if err := add(partitionProjects, p.ID, p); err != nil {
			return nil, err
		}
	}
	for _, t := range snap.Tasks {
		if err := add(partitionTasks, t.ID, t); err != nil {
			return nil, err
		}
	}
	for _, u := range snap.Users {
		if err := add(partitionUsers, u.ID, u); err != nil {
			return nil, err
		}
	}
	for _, c := range snap.Comments {
		if err := add(partitionComments, c.ID, c); err != nil {
			return nil, err
		}
	}
	for kind, seq := range snap.Sequences {
		if err := addRow(partitionMeta, kind, seq); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *TableSnapshot) keys(ctx context.Context) (map[rowRef]struct{}, error) {
	sel := "PartitionKey,RowKey"
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Select: &sel})
	keys := make(map[rowRef]struct{})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent aztables.Entity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			keys[rowRef{ent.PartitionKey, ent.RowKey}] = struct{}{}
		}
	}
	return keys, nil
}
