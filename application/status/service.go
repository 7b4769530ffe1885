/*
Package status 订单状态目录的管理写路径

单一"最终-成功"状态规则在这里强制执行；订单核心读取目录时视其已满足该规则。
*/
package status

import (
	"context"
	"fmt"

	"orderflow/domain/shared"
	"orderflow/domain/status"
	"orderflow/pkg/validation"

	"go.uber.org/zap"
)

// StatusDTO 状态目录条目
// IsFinalResultPositive: null 非最终, true 最终-成功, false 其他最终
type StatusDTO struct {
	ID                    int64  `json:"id"`
	Name                  string `json:"name"`
	SequenceNumber        int    `json:"sequenceNumber"`
	IsFinalResultPositive *bool  `json:"isFinalResultPositive"`
	IsAvailableClient     bool   `json:"isAvailableClient"`
}

type CreateStatusCommand struct {
	Name                  string `json:"name" validate:"required,max=100"`
	IsFinalResultPositive *bool  `json:"isFinalResultPositive"`
	IsAvailableClient     bool   `json:"isAvailableClient"`
}

type UpdateStatusCommand struct {
	Name                  string `json:"name" validate:"required,max=100"`
	SequenceNumber        int    `json:"sequenceNumber" validate:"gte=0"`
	IsFinalResultPositive *bool  `json:"isFinalResultPositive"`
	IsAvailableClient     bool   `json:"isAvailableClient"`
}

type SequenceItem struct {
	ID             int64 `json:"id" validate:"gt=0"`
	SequenceNumber int   `json:"sequenceNumber" validate:"gte=0"`
}

type ReorderCommand struct {
	Items []SequenceItem `json:"items" validate:"min=1,dive"`
}

type ReorderResult struct {
	Success  bool     `json:"success"`
	Updated  int64    `json:"updated"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *ReorderResult) ResultWarnings() []string { return r.Warnings }

type Service struct {
	uowFactory shared.UnitOfWorkFactory
	statuses   status.Repository
	log        *zap.Logger
}

func NewService(uowFactory shared.UnitOfWorkFactory, statuses status.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{uowFactory: uowFactory, statuses: statuses, log: log.Named("status")}
}

// List 按序号升序
func (s *Service) List(ctx context.Context) ([]*StatusDTO, error) {
	list, err := s.statuses.ListAscending(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*StatusDTO, len(list))
	for i, st := range list {
		out[i] = toDTO(st)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*StatusDTO, error) {
	st, err := s.statuses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(st), nil
}

// Create 新状态排在目录末尾
func (s *Service) Create(ctx context.Context, cmd CreateStatusCommand) (*StatusDTO, error) {
	if err := validation.Struct("order_status", cmd); err != nil {
		return nil, err
	}
	outcome := status.FinalOutcomeFromFlag(cmd.IsFinalResultPositive)

	var created *status.OrderStatus
	err := s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		if err := s.ensureSinglePositive(ctx, outcome, 0); err != nil {
			return err
		}
		maxSeq, err := s.statuses.MaxSequence(ctx)
		if err != nil {
			return fmt.Errorf("read max sequence: %w", err)
		}
		st, err := status.New(cmd.Name, maxSeq+1, outcome, cmd.IsAvailableClient)
		if err != nil {
			return err
		}
		if err := s.statuses.Create(ctx, st); err != nil {
			return fmt.Errorf("create status: %w", err)
		}
		created = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Order status created", zap.Int64("status_id", created.ID()), zap.String("name", created.Name()))
	return toDTO(created), nil
}

func (s *Service) Update(ctx context.Context, id int64, cmd UpdateStatusCommand) (*StatusDTO, error) {
	if err := validation.Struct("order_status", cmd); err != nil {
		return nil, err
	}
	outcome := status.FinalOutcomeFromFlag(cmd.IsFinalResultPositive)

	var updated *status.OrderStatus
	err := s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		st, err := s.statuses.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ensureSinglePositive(ctx, outcome, id); err != nil {
			return err
		}
		if err := st.Change(cmd.Name, cmd.SequenceNumber, outcome, cmd.IsAvailableClient); err != nil {
			return err
		}
		if err := s.statuses.Update(ctx, st); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		updated = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDTO(updated), nil
}

// Delete 被订单引用时返回冲突
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		return s.statuses.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("Order status deleted", zap.Int64("status_id", id))
	return nil
}

// Reorder 所有序号在同一事务内更新
func (s *Service) Reorder(ctx context.Context, cmd ReorderCommand) (*ReorderResult, error) {
	if err := validation.Struct("order_status", cmd); err != nil {
		return nil, err
	}
	updates := make([]status.SequenceUpdate, len(cmd.Items))
	for i, item := range cmd.Items {
		updates[i] = status.SequenceUpdate{ID: item.ID, Sequence: item.SequenceNumber}
	}

	var changed int64
	err := s.uowFactory.New().Execute(ctx, func(ctx context.Context) error {
		var err error
		changed, err = s.statuses.UpdateSequences(ctx, updates)
		if err != nil {
			return fmt.Errorf("update sequences: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ReorderResult{Success: true, Updated: changed}
	if changed < int64(len(updates)) {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d of %d statuses were not found", int64(len(updates))-changed, len(updates)))
	}
	return result, nil
}

func (s *Service) ensureSinglePositive(ctx context.Context, outcome status.FinalOutcome, excludeID int64) error {
	if outcome != status.FinalPositive {
		return nil
	}
	exists, err := s.statuses.HasPositiveFinal(ctx, excludeID)
	if err != nil {
		return fmt.Errorf("check positive final status: %w", err)
	}
	if exists {
		return status.NewSecondPositiveFinalError()
	}
	return nil
}

func toDTO(st *status.OrderStatus) *StatusDTO {
	return &StatusDTO{
		ID:                    st.ID(),
		Name:                  st.Name(),
		SequenceNumber:        st.Sequence(),
		IsFinalResultPositive: st.FinalOutcome().Flag(),
		IsAvailableClient:     st.ClientVisible(),
	}
}
