package info

import (
	"context"
	"fmt"
	"os"

	"tableflip.dev/tabtree/pkg/app"
	"tableflip.dev/tabtree/pkg/config"
)

type Info struct {
	Config  *config.Config
	Service *app.Service
}

func (n *Info) Do(ctx context.Context) error {

	if override := os.Getenv("TABTREE_CONFIG_PATH"); override != "" {
		fmt.Println("TABTREE_CONFIG_PATH found on env, using ", override)
	} else {
		fmt.Println("TABTREE_CONFIG_PATH env var not set")
	}

	if n.Config == nil {
		var err error
		n.Config, err = config.Load()
		if err != nil {
			return err
		}
	}

	fmt.Println("Config.path: ", n.Config.BasePath())

	p := n.Config.Policy
	fmt.Println("Policy:")
	fmt.Printf("  insertNewChildAt:    %s\n", p.InsertNewChildAt)
	fmt.Printf("  closeParentBehavior: %s\n", p.CloseParentBehavior)
	fmt.Printf("  autoCollapse:        %t\n", p.AutoCollapseExpandSubtreeOnSelect)
	fmt.Printf("  maxDelay:            %s\n", p.MaxDelayForDuplication)

	if n.Service == nil {
		return fmt.Errorf("Failed to create service object.")
	}

	names, err := n.Service.Windows(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Windows:\n")
	for _, k := range names {
		fmt.Printf("  %s\n", k)
	}
	if len(names) == 0 {
		fmt.Printf("  %s\n", "no windows")
	}

	return nil
}
