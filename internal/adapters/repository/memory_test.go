package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/handrecon/internal/adapters/repository"
	"github.com/okian/handrecon/internal/domain/model"
	"github.com/okian/handrecon/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("Given an analysis memory store", t, func() {
		store := repository.NewMemoryStore(repository.AnalysisID)
		var repo repository.Repository[model.Analysis] = store

		So(repo.InsertOne(ctx, model.Analysis{ID: "a1", HandID: "h1", Status: types.StatusQueued}), ShouldBeNil)
		So(repo.InsertOne(ctx, model.Analysis{ID: "a2", HandID: "h2", Status: types.StatusQueued}), ShouldBeNil)
		So(repo.InsertOne(ctx, model.Analysis{ID: "a3", HandID: "h3", Status: types.StatusQueued}), ShouldBeNil)

		Convey("When an id is inserted twice", func() {
			err := repo.InsertOne(ctx, model.Analysis{ID: "a1"})

			Convey("Then ErrConflict is returned", func() {
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When fetching by id", func() {
			got, err := repo.FetchByID(ctx, "a2")
			_, missing := repo.FetchByID(ctx, "nope")

			Convey("Then the stored value or ErrNotFound is returned", func() {
				So(err, ShouldBeNil)
				So(got.HandID, ShouldEqual, "h2")
				So(errors.Is(missing, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When paging with FetchMany", func() {
			all, err := repo.FetchMany(ctx, repository.Query{})
			page, _ := repo.FetchMany(ctx, repository.Query{Limit: 1, Offset: 1})
			past, _ := repo.FetchMany(ctx, repository.Query{Offset: 10})
			_, bad := repo.FetchMany(ctx, repository.Query{Limit: -1})

			Convey("Then insertion order is kept", func() {
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
				So(all[0].ID, ShouldEqual, "a1")
				So(all[2].ID, ShouldEqual, "a3")
				So(len(page), ShouldEqual, 1)
				So(page[0].ID, ShouldEqual, "a2")
				So(past, ShouldBeEmpty)
				So(errors.Is(bad, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When an analysis is updated", func() {
			err := repo.UpdateByID(ctx, "a1", model.Analysis{ID: "a1", HandID: "h1", Status: types.StatusAccepted, Iteration: 2})
			missing := repo.UpdateByID(ctx, "zz", model.Analysis{ID: "zz"})
			got, _ := repo.FetchByID(ctx, "a1")

			Convey("Then the new value replaces the old", func() {
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, types.StatusAccepted)
				So(got.Iteration, ShouldEqual, 2)
				So(errors.Is(missing, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When an analysis is deleted", func() {
			So(repo.DeleteByID(ctx, "a2"), ShouldBeNil)
			all, _ := repo.FetchMany(ctx, repository.Query{})

			Convey("Then it is gone and order is kept for the rest", func() {
				So(store.Count(ctx), ShouldEqual, 2)
				So(all[0].ID, ShouldEqual, "a1")
				So(all[1].ID, ShouldEqual, "a3")
				So(errors.Is(repo.DeleteByID(ctx, "a2"), repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
