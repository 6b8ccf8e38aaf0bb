package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/release-unlock/internal/constants"
	"github.com/release-unlock/internal/models"
	"github.com/release-unlock/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newBatchService(t *testing.T) (*gorm.DB, *CodeBatchService) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewCodeBatchService(
		repository.NewUnlockCodeRepository(db),
		repository.NewCodeBatchRepository(db),
		repository.NewReleaseRepository(db),
		NewCodeGenerator(),
	)
	return db, svc
}

func TestGenerateCodesCreatesBatch(t *testing.T) {
	db, svc := newBatchService(t)
	release := seedRelease(t, db, "batch-album")
	adminID := uint(1)

	batch, codes, err := svc.GenerateCodes(GenerateCodesInput{
		ReleaseID:     release.ID,
		Quantity:      5,
		UnitCost:      models.NewMoneyFromDecimal(decimal.NewFromFloat(3.5)),
		PaymentMethod: "bank_transfer",
		Note:          "promo drop",
		CreatedBy:     &adminID,
	})
	if err != nil {
		t.Fatalf("generate codes failed: %v", err)
	}
	if len(codes) != 5 {
		t.Fatalf("codes want 5 got %d", len(codes))
	}
	if !strings.HasPrefix(batch.BatchNo, "UCB") {
		t.Fatalf("batch no want UCB prefix got %s", batch.BatchNo)
	}
	if batch.TotalCost.String() != "17.50" {
		t.Fatalf("total cost want 17.50 got %s", batch.TotalCost.String())
	}

	var stored int64
	db.Model(&models.UnlockCode{}).Where("batch_id = ?", batch.ID).Count(&stored)
	if stored != 5 {
		t.Fatalf("stored codes want 5 got %d", stored)
	}
	for _, code := range codes {
		if !ValidCodeFormat(code.Code) {
			t.Fatalf("batch produced malformed code %s", code.Code)
		}
		if code.Status != constants.UnlockCodeStatusUnused {
			t.Fatalf("new code status want unused got %s", code.Status)
		}
	}
}

func TestGenerateCodesRejectsBadInput(t *testing.T) {
	db, svc := newBatchService(t)
	release := seedRelease(t, db, "strict-album")

	cases := []struct {
		name  string
		input GenerateCodesInput
		want  error
	}{
		{name: "missing release", input: GenerateCodesInput{Quantity: 1}, want: ErrCodeInvalid},
		{name: "zero quantity", input: GenerateCodesInput{ReleaseID: release.ID, Quantity: 0}, want: ErrCodeInvalid},
		{name: "over max quantity", input: GenerateCodesInput{ReleaseID: release.ID, Quantity: maxBatchQuantity + 1}, want: ErrCodeInvalid},
		{name: "negative cost", input: GenerateCodesInput{ReleaseID: release.ID, Quantity: 1, UnitCost: models.NewMoneyFromDecimal(decimal.NewFromInt(-1))}, want: ErrCodeInvalid},
		{name: "unknown release", input: GenerateCodesInput{ReleaseID: 9999, Quantity: 1}, want: ErrReleaseNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := svc.GenerateCodes(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("want %v got %v", tc.want, err)
			}
		})
	}
}

func TestInvalidateAndRestoreCode(t *testing.T) {
	db, svc := newBatchService(t)
	release := seedRelease(t, db, "toggle-album")
	code := seedUnlockCode(t, db, release.ID, "SHF-TGLE-2345")

	invalidated, err := svc.InvalidateCode(code.ID)
	if err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if invalidated.Status != constants.UnlockCodeStatusInvalid {
		t.Fatalf("status want invalid got %s", invalidated.Status)
	}

	// 重复作废属于非法迁移
	if _, err := svc.InvalidateCode(code.ID); !errors.Is(err, ErrCodeInvalidStatus) {
		t.Fatalf("double invalidate want ErrCodeInvalidStatus got %v", err)
	}

	restored, err := svc.RestoreCode(code.ID)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.Status != constants.UnlockCodeStatusUnused {
		t.Fatalf("status want unused got %s", restored.Status)
	}
}

func TestInvalidateRedeemedCodeFails(t *testing.T) {
	db, svc := newBatchService(t)
	release := seedRelease(t, db, "final-album")
	code := seedUnlockCode(t, db, release.ID, "SHF-DONE-2345")
	db.Model(code).Update("status", constants.UnlockCodeStatusRedeemed)

	if _, err := svc.InvalidateCode(code.ID); !errors.Is(err, ErrCodeAlreadyRedeemed) {
		t.Fatalf("want ErrCodeAlreadyRedeemed got %v", err)
	}
	if _, err := svc.RestoreCode(code.ID); !errors.Is(err, ErrCodeAlreadyRedeemed) {
		t.Fatalf("restore redeemed want ErrCodeAlreadyRedeemed got %v", err)
	}
	if _, err := svc.InvalidateCode(9999); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("unknown id want ErrCodeNotFound got %v", err)
	}
}

func TestListCodesFilters(t *testing.T) {
	db, svc := newBatchService(t)
	release := seedRelease(t, db, "list-album")
	seedUnlockCode(t, db, release.ID, "SHF-LIST-2345")
	invalid := seedUnlockCode(t, db, release.ID, "SHF-LIST-6789")
	db.Model(invalid).Update("status", constants.UnlockCodeStatusInvalid)

	codes, total, err := svc.ListCodes(ListCodesInput{ReleaseID: release.ID, Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list codes failed: %v", err)
	}
	if total != 2 || len(codes) != 2 {
		t.Fatalf("list want 2 got total=%d len=%d", total, len(codes))
	}

	codes, total, err = svc.ListCodes(ListCodesInput{Status: "Invalid", Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 1 || codes[0].Code != "SHF-LIST-6789" {
		t.Fatalf("status filter want single invalid code, got total=%d", total)
	}
}

func TestExportBatchCodes(t *testing.T) {
	db, svc := newBatchService(t)
	release := seedRelease(t, db, "export-album")

	batch, codes, err := svc.GenerateCodes(GenerateCodesInput{ReleaseID: release.ID, Quantity: 3})
	if err != nil {
		t.Fatalf("generate codes failed: %v", err)
	}

	data, contentType, err := svc.ExportBatchCodes(batch.ID, "csv")
	if err != nil {
		t.Fatalf("export csv failed: %v", err)
	}
	if contentType != "text/csv; charset=utf-8" {
		t.Fatalf("content type want csv got %s", contentType)
	}
	body := string(data)
	if !strings.Contains(body, "batch_no") {
		t.Fatalf("csv should include header, got %s", body)
	}
	for _, code := range codes {
		if !strings.Contains(body, code.Code) {
			t.Fatalf("csv missing code %s", code.Code)
		}
	}

	data, contentType, err = svc.ExportBatchCodes(batch.ID, "txt")
	if err != nil {
		t.Fatalf("export txt failed: %v", err)
	}
	if contentType != "text/plain; charset=utf-8" {
		t.Fatalf("content type want txt got %s", contentType)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("txt lines want 3 got %d", len(lines))
	}

	if _, _, err := svc.ExportBatchCodes(batch.ID, "xlsx"); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("unsupported format want ErrCodeInvalid got %v", err)
	}
}
