package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/bigkaa/reporting-module/internal/domain/model"
)

func TestScopeResolver_Resolve(t *testing.T) {
	repo := newFakeMappingRepo(&model.Mapping{
		UserID:        "u1",
		Email:         "u1@example.com",
		PlatformUUID:  "0b8a3c1e-6f0e-4d4a-9d59-1c1f0d3b8b11",
		CollectionIDs: []string{"10", "11"},
		GroupIDs:      []string{"3"},
	})
	r := NewScopeResolver(repo, []string{"1"}, []string{"2"}, testLogger())

	tests := []struct {
		name            string
		id              model.Identity
		wantCollections []string
		wantGroups      []string
		wantUUID        string
	}{
		{
			name:            "есть маппинг",
			id:              model.Identity{UserID: "u1"},
			wantCollections: []string{"10", "11"},
			wantGroups:      []string{"3"},
			wantUUID:        "0b8a3c1e-6f0e-4d4a-9d59-1c1f0d3b8b11",
		},
		{
			name:            "нет маппинга — scope по умолчанию",
			id:              model.Identity{UserID: "u2"},
			wantCollections: []string{"1"},
			wantGroups:      []string{"2"},
		},
		{
			name:            "анонимный пользователь",
			id:              model.Identity{},
			wantCollections: []string{"1"},
			wantGroups:      []string{"2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope, err := r.Resolve(context.Background(), tt.id)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !slices.Equal(scope.CollectionIDs, tt.wantCollections) {
				t.Errorf("CollectionIDs = %v, хотели %v", scope.CollectionIDs, tt.wantCollections)
			}
			if !slices.Equal(scope.GroupIDs, tt.wantGroups) {
				t.Errorf("GroupIDs = %v, хотели %v", scope.GroupIDs, tt.wantGroups)
			}
			if scope.PlatformUUID != tt.wantUUID {
				t.Errorf("PlatformUUID = %q, хотели %q", scope.PlatformUUID, tt.wantUUID)
			}
		})
	}
}

func TestScopeResolver_StorageFailure(t *testing.T) {
	repo := newFakeMappingRepo()
	repo.err = errDBDown
	r := NewScopeResolver(repo, []string{"1"}, nil, testLogger())

	if _, err := r.Resolve(context.Background(), model.Identity{UserID: "u1"}); !errors.Is(err, errDBDown) {
		t.Errorf("Resolve: err = %v, хотели %v", err, errDBDown)
	}

	scope := r.resolveForDiscovery(context.Background(), model.Identity{UserID: "u1"})
	if !scope.IsEmpty() {
		t.Errorf("при сбое хранилища поиск должен получить пустой scope, получили %+v", scope)
	}
}
