//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hyperschedule/hyperschedule-sub000/internal/model"
	"github.com/hyperschedule/hyperschedule-sub000/internal/repository"
	"github.com/hyperschedule/hyperschedule-sub000/pkg/database"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=hyperschedule password=hyperschedule dbname=hyperschedule_test sslmode=disable TimeZone=UTC"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "迁移失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

var (
	sp2023 = model.TermIdentifier{Term: model.TermSpring, Year: 2023}
	fa2023 = model.TermIdentifier{Term: model.TermFall, Year: 2023}
)

func fixture(dept string, number int, term model.TermIdentifier, half *model.Half) model.Section {
	code := model.CourseCode{Department: dept, CourseNumber: number, Affiliation: "HM"}
	return model.Section{
		Identifier: model.SectionIdentifier{
			CourseCode:    code,
			SectionNumber: 1,
			Term:          term.Term,
			Year:          term.Year,
			Half:          half,
		},
		Course: model.Course{
			Code:               code,
			Title:              dept + " 测试课程",
			Description:        "描述",
			PrimaryAssociation: model.SchoolHMC,
		},
		CourseAreas: []string{"HCSI", "4 ELEC"},
		Credits:     1.5,
		PermCount:   2,
		SeatsTotal:  30,
		SeatsFilled: 26,
		Status:      model.StatusReopened,
		StartDate:   model.CourseDate{Year: term.Year, Month: 1, Day: 17},
		EndDate:     model.CourseDate{Year: term.Year, Month: 5, Day: 12},
		Instructors: []model.Instructor{{Name: "Doe, Jane"}},
		Schedules: []model.Schedule{{
			StartTime: 47700,
			EndTime:   52200,
			Days:      []model.Weekday{model.Tuesday, model.Thursday},
			Locations: []string{"HM BK B126"},
		}},
	}
}

func cleanup(t *testing.T) {
	t.Helper()
	if err := testDB.Exec("DELETE FROM sections").Error; err != nil {
		t.Fatalf("清理 sections 失败: %v", err)
	}
}

// ═══════════════════════════════════════════════════════════
// 整学期替换
// ═══════════════════════════════════════════════════════════

func TestSectionRepo_ReplaceAndList(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := repository.NewSectionRepo(testDB)

	want := []model.Section{
		fixture("ENGR", 85, sp2023, &model.Half{Prefix: "P", Number: 1}),
		fixture("CSCI", 105, sp2023, nil),
	}
	if err := repo.ReplaceByTerm(ctx, sp2023, want); err != nil {
		t.Fatalf("入库失败: %v", err)
	}

	got, err := repo.List(ctx, &sp2023)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("往返结果不一致 (-want +got):\n%s", diff)
	}
}

func TestSectionRepo_ReplaceOnlyAffectsTerm(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := repository.NewSectionRepo(testDB)

	if err := repo.ReplaceByTerm(ctx, fa2023, []model.Section{fixture("MATH", 19, fa2023, nil)}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	if err := repo.ReplaceByTerm(ctx, sp2023, []model.Section{
		fixture("CSCI", 105, sp2023, nil),
		fixture("CSCI", 70, sp2023, nil),
	}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	if err := repo.ReplaceByTerm(ctx, sp2023, []model.Section{fixture("CSCI", 70, sp2023, nil)}); err != nil {
		t.Fatalf("再次入库失败: %v", err)
	}

	n, err := repo.CountByTerm(ctx, sp2023)
	if err != nil || n != 1 {
		t.Errorf("替换后应只剩 1 条, 实际 %d (%v)", n, err)
	}
	n, err = repo.CountByTerm(ctx, fa2023)
	if err != nil || n != 1 {
		t.Errorf("其他学期不应受影响, 实际 %d (%v)", n, err)
	}

	all, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(all) != 2 || all[0].Identifier.Term != model.TermFall {
		t.Errorf("全量查询应按学期排序: %+v", all)
	}
}

func TestSectionRepo_RejectsForeignTerm(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := repository.NewSectionRepo(testDB)

	if err := repo.ReplaceByTerm(ctx, sp2023, []model.Section{fixture("CSCI", 105, sp2023, nil)}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	err := repo.ReplaceByTerm(ctx, sp2023, []model.Section{fixture("MATH", 19, fa2023, nil)})
	if err == nil {
		t.Fatal("学期不符的 Section 应被拒绝")
	}

	// 拒绝时旧数据保持不变
	n, _ := repo.CountByTerm(ctx, sp2023)
	if n != 1 {
		t.Errorf("拒绝后旧数据应保留, 实际 %d", n)
	}
}

func TestSectionRepo_ReplaceWithEmpty(t *testing.T) {
	defer cleanup(t)
	ctx := context.Background()
	repo := repository.NewSectionRepo(testDB)

	if err := repo.ReplaceByTerm(ctx, sp2023, []model.Section{fixture("CSCI", 105, sp2023, nil)}); err != nil {
		t.Fatalf("入库失败: %v", err)
	}
	if err := repo.ReplaceByTerm(ctx, sp2023, nil); err != nil {
		t.Fatalf("空目录入库失败: %v", err)
	}
	got, err := repo.List(ctx, &sp2023)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("空目录替换后应无数据, 实际 %d", len(got))
	}
}
